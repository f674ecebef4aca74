package pxgated

import (
	"os"
	"path"

	"github.com/moonpixels/pxgated/schema"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteName = "pxgated.sqlite"

// Wdb is the relational history ledger: one row per submitted operation.
type Wdb struct {
	Db *gorm.DB
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.OpRecord{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) InsertOp(rec schema.OpRecord) error {
	return w.Db.Create(&rec).Error
}

func (w *Wdb) UpdateOpStatus(txHash, status, errMsg string) error {
	return w.Db.Model(&schema.OpRecord{}).Where("tx_hash = ?", txHash).
		Updates(map[string]interface{}{"status": status, "err_msg": errMsg}).Error
}

func (w *Wdb) GetOp(txHash string) (schema.OpRecord, error) {
	rec := schema.OpRecord{}
	err := w.Db.Where("tx_hash = ?", txHash).First(&rec).Error
	return rec, err
}

func (w *Wdb) GetOps(limit int) ([]schema.OpRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	recs := make([]schema.OpRecord, 0, limit)
	err := w.Db.Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}

func (w *Wdb) GetOpsBySender(sender string, limit int) ([]schema.OpRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	recs := make([]schema.OpRecord, 0, limit)
	err := w.Db.Where("sender = ?", sender).Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}
