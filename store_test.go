package pxgated

import (
	"testing"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCellsRoundTrip(t *testing.T) {
	s := testStore(t)
	cells := []schema.Cell{
		{X: 1, Y: 2, Color: "#e50000", Owner: "0xabc", Minted: true},
		{X: 3, Y: 4, Color: "#02be01", Owner: "0xdef", Minted: true},
	}
	assert.NoError(t, s.SaveCells(cells))

	got, err := s.LoadAllCells()
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoreLoadedChunks(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.SaveLoadedChunks([]string{"0-0-4-4", "5-0-9-4"}))

	keys, err := s.LoadLoadedChunks()
	assert.NoError(t, err)
	assert.Len(t, keys, 2)

	assert.NoError(t, s.DropLoadedChunks())
	keys, err = s.LoadLoadedChunks()
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoreTotalMinted(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadTotalMinted()
	assert.ErrorIs(t, err, ErrNotExist)

	assert.NoError(t, s.SaveTotalMinted(42))
	n, err := s.LoadTotalMinted()
	assert.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
