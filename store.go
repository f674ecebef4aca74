package pxgated

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/moonpixels/pxgated/schema"
	bolt "go.etcd.io/bbolt"
)

const (
	boltAllocSize = 8 * 1024 * 1024
	boltName      = "canvas.db"
)

// Store persists the canvas snapshot and loaded-chunk keys so a restart can
// serve the mirror immediately instead of re-fetching every chunk.
type Store struct {
	BoltDb *bolt.DB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	if len(boltDirPath) == 0 {
		return nil, errors.New("boltDb dir path can not null")
	}
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 2 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	db.AllocSize = boltAllocSize

	kv := &Store{BoltDb: db}
	if err := kv.BoltDb.Update(func(tx *bolt.Tx) error {
		bucketNames := []string{
			schema.CellBucket,
			schema.LoadedChunkBucket,
			schema.ConstantsBucket,
		}
		for _, bkt := range bucketNames {
			if _, err := tx.CreateBucketIfNotExists([]byte(bkt)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return kv, nil
}

func (s *Store) Close() error {
	return s.BoltDb.Close()
}

func (s *Store) SaveCells(cells []schema.Cell) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(schema.CellBucket))
		for _, cell := range cells {
			val, err := json.Marshal(&cell)
			if err != nil {
				return err
			}
			if err := bkt.Put([]byte(schema.CellKey(cell.X, cell.Y)), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadAllCells() ([]schema.Cell, error) {
	cells := make([]schema.Cell, 0)
	err := s.BoltDb.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(schema.CellBucket))
		return bkt.ForEach(func(_, v []byte) error {
			cell := schema.Cell{}
			if err := json.Unmarshal(v, &cell); err != nil {
				return err
			}
			cells = append(cells, cell)
			return nil
		})
	})
	return cells, err
}

func (s *Store) SaveLoadedChunks(keys []string) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(schema.LoadedChunkBucket))
		for _, key := range keys {
			if err := bkt.Put([]byte(key), []byte{0x01}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadLoadedChunks() ([]string, error) {
	keys := make([]string, 0)
	err := s.BoltDb.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(schema.LoadedChunkBucket))
		return bkt.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// DropLoadedChunks clears the persisted chunk index, the on-disk side of a
// loader invalidation.
func (s *Store) DropLoadedChunks() error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(schema.LoadedChunkBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(schema.LoadedChunkBucket))
		return err
	})
}

func (s *Store) SaveTotalMinted(n int64) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(schema.ConstantsBucket))
		return bkt.Put([]byte(schema.KeyTotalMinted), []byte(strconv.FormatInt(n, 10)))
	})
}

func (s *Store) LoadTotalMinted() (int64, error) {
	var n int64
	err := s.BoltDb.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(schema.ConstantsBucket)).Get([]byte(schema.KeyTotalMinted))
		if data == nil {
			return ErrNotExist
		}
		var err error
		n, err = strconv.ParseInt(string(data), 10, 64)
		return err
	})
	return n, err
}
