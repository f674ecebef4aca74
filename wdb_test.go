package pxgated

import (
	"testing"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

func testWdb(t *testing.T) *Wdb {
	t.Helper()
	w := NewSqliteDb(t.TempDir())
	assert.NoError(t, w.Migrate())
	t.Cleanup(w.Close)
	return w
}

func TestWdbOpLifecycle(t *testing.T) {
	w := testWdb(t)
	rec := schema.OpRecord{
		TxHash:    "0xabc",
		Kind:      schema.OpKindMint,
		Sender:    "0xsender",
		BatchSize: 1,
		Status:    schema.OpStatusPending,
	}
	assert.NoError(t, w.InsertOp(rec))

	got, err := w.GetOp("0xabc")
	assert.NoError(t, err)
	assert.Equal(t, schema.OpStatusPending, got.Status)

	assert.NoError(t, w.UpdateOpStatus("0xabc", schema.OpStatusFailed, "execution reverted"))
	got, err = w.GetOp("0xabc")
	assert.NoError(t, err)
	assert.Equal(t, schema.OpStatusFailed, got.Status)
	assert.Equal(t, "execution reverted", got.ErrMsg)
}

func TestWdbGetOpsBySender(t *testing.T) {
	w := testWdb(t)
	assert.NoError(t, w.InsertOp(schema.OpRecord{TxHash: "0x1", Kind: schema.OpKindMint, Sender: "0xa", Status: schema.OpStatusPending}))
	assert.NoError(t, w.InsertOp(schema.OpRecord{TxHash: "0x2", Kind: schema.OpKindUpdate, Sender: "0xb", Status: schema.OpStatusPending}))
	assert.NoError(t, w.InsertOp(schema.OpRecord{TxHash: "0x3", Kind: schema.OpKindBatch, Sender: "0xa", Status: schema.OpStatusPending}))

	recs, err := w.GetOpsBySender("0xa", 10)
	assert.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, "0x3", recs[0].TxHash)
}
