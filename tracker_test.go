package pxgated

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

type fakeOpReader struct {
	mined  chan error
	owners map[uint64]string
	colors map[string]string
	total  int64
	reads  int32
}

func newFakeOpReader() *fakeOpReader {
	return &fakeOpReader{
		mined:  make(chan error, 1),
		owners: make(map[uint64]string),
		colors: make(map[string]string),
	}
}

func (f *fakeOpReader) WaitMined(ctx context.Context, _ string) error {
	select {
	case err := <-f.mined:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeOpReader) OwnerOf(_ context.Context, tokenId uint64) (string, error) {
	atomic.AddInt32(&f.reads, 1)
	owner, ok := f.owners[tokenId]
	if !ok {
		return "", errors.New("execution reverted")
	}
	return owner, nil
}

func (f *fakeOpReader) GetColor(_ context.Context, x, y int) (string, error) {
	color, ok := f.colors[schema.CellKey(x, y)]
	if !ok {
		return "", errors.New("execution reverted")
	}
	return color, nil
}

func (f *fakeOpReader) TotalMinted(_ context.Context) (int64, error) {
	return f.total, nil
}

func (f *fakeOpReader) readCount() int32 {
	return atomic.LoadInt32(&f.reads)
}

func newTestTracker(reader OpReader) (*Tracker, *Canvas, *NotifyCenter) {
	canvas := NewCanvas()
	notify := NewNotifyCenter()
	tr := NewTracker(canvas, notify, reader, nil)
	tr.fallbackDelay = 80 * time.Millisecond
	tr.modeResetDelay = 10 * time.Millisecond
	return tr, canvas, notify
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Fail(t, "condition not met in time")
}

func mintOp(txHash string, x, y int) schema.PendingOp {
	return schema.PendingOp{
		TxHash:    txHash,
		Kind:      schema.OpKindMint,
		Cells:     []string{schema.CellKey(x, y)},
		BatchSize: 1,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestTrackerSuccessWithFallback(t *testing.T) {
	reader := newFakeOpReader()
	id, _ := ToID(10, 20)
	reader.owners[id] = "0xSubmitter"
	reader.colors["10-20"] = "#ff0000"
	reader.total = 1

	tr, canvas, notify := newTestTracker(reader)

	op := mintOp("0xaaa", 10, 20)
	canvas.MarkPending(schema.OpKindMint, op.Cells...)
	assert.True(t, canvas.IsPending(10, 20))

	assert.NoError(t, tr.Track(op))
	reader.mined <- nil

	// receipt confirmation raises the success notification immediately
	waitFor(t, func() bool { return len(notify.List()) == 1 })
	assert.Equal(t, "Pixel Minted!", notify.List()[0].Title)

	// no event arrives, so the fallback re-read converges the canvas
	waitFor(t, func() bool { return canvas.IsMinted(10, 20) })
	assert.False(t, canvas.IsPending(10, 20))
	owner, _ := canvas.OwnerOf(10, 20)
	assert.Equal(t, "0xSubmitter", owner)
	assert.Equal(t, "#ff0000", canvas.ColorOf(10, 20))
	assert.Equal(t, int64(1), canvas.TotalMinted())
	waitFor(t, func() bool { return tr.PendingCount() == 0 })
}

func TestTrackerFailureClearsPending(t *testing.T) {
	reader := newFakeOpReader()
	tr, canvas, notify := newTestTracker(reader)

	op := mintOp("0xbbb", 3, 4)
	canvas.MarkPending(schema.OpKindMint, op.Cells...)
	assert.NoError(t, tr.Track(op))

	reader.mined <- errors.New("user rejected the request")

	waitFor(t, func() bool { return len(notify.List()) == 1 })
	nt := notify.List()[0]
	assert.Equal(t, schema.NotifyError, nt.Type)
	assert.Equal(t, "Transaction rejected by user", nt.Message)
	assert.False(t, canvas.IsPending(3, 4))
	assert.False(t, canvas.IsMinted(3, 4))
	assert.Equal(t, 0, tr.PendingCount())
}

func TestTrackerEventCancelsFallback(t *testing.T) {
	reader := newFakeOpReader()
	tr, canvas, _ := newTestTracker(reader)

	op := mintOp("0xccc", 7, 8)
	canvas.MarkPending(schema.OpKindMint, op.Cells...)
	assert.NoError(t, tr.Track(op))
	reader.mined <- nil

	// simulate the event path: authoritative apply then confirm the cell
	waitFor(t, func() bool { return tr.PendingCount() == 1 })
	canvas.ApplyAuthoritative(7, 8, "#02be01", "0xEventOwner")
	tr.CellConfirmed(schema.CellKey(7, 8))

	// wait past the fallback window: the re-read must not have run
	time.Sleep(tr.fallbackDelay + 100*time.Millisecond)
	assert.Equal(t, int32(0), reader.readCount())
	assert.Equal(t, 0, tr.PendingCount())
	owner, _ := canvas.OwnerOf(7, 8)
	assert.Equal(t, "0xEventOwner", owner)
}

func TestTrackerEventBeforeReceiptSkipsFallback(t *testing.T) {
	reader := newFakeOpReader()
	tr, canvas, notify := newTestTracker(reader)

	op := mintOp("0xcc2", 5, 6)
	canvas.MarkPending(schema.OpKindMint, op.Cells...)
	assert.NoError(t, tr.Track(op))

	// the ws push lands while the receipt poll is still outstanding
	canvas.ApplyAuthoritative(5, 6, "#02be01", "0xEventOwner")
	tr.CellConfirmed(schema.CellKey(5, 6))
	assert.Equal(t, 1, tr.PendingCount())

	reader.mined <- nil

	waitFor(t, func() bool { return tr.PendingCount() == 0 })
	waitFor(t, func() bool { return len(notify.List()) == 1 })
	assert.Equal(t, "Pixel Minted!", notify.List()[0].Title)

	// nothing left to reconcile, so no fallback re-read fires
	time.Sleep(tr.fallbackDelay + 100*time.Millisecond)
	assert.Equal(t, int32(0), reader.readCount())
	owner, _ := canvas.OwnerOf(5, 6)
	assert.Equal(t, "0xEventOwner", owner)
}

func TestTrackerDuplicateHashRejected(t *testing.T) {
	reader := newFakeOpReader()
	tr, _, _ := newTestTracker(reader)

	op := mintOp("0xddd", 1, 1)
	assert.NoError(t, tr.Track(op))
	assert.ErrorIs(t, tr.Track(op), ErrOpExist)
}

func TestTrackerConcurrentOpsTrackedIndependently(t *testing.T) {
	reader := newFakeOpReader()
	id1, _ := ToID(1, 1)
	id2, _ := ToID(2, 2)
	reader.owners[id1] = "0xone"
	reader.owners[id2] = "0xtwo"
	reader.colors["1-1"] = "#111111"
	reader.colors["2-2"] = "#222222"

	tr, canvas, _ := newTestTracker(reader)

	op1 := mintOp("0xe01", 1, 1)
	op2 := mintOp("0xe02", 2, 2)
	canvas.MarkPending(schema.OpKindMint, op1.Cells...)
	canvas.MarkPending(schema.OpKindMint, op2.Cells...)
	assert.NoError(t, tr.Track(op1))
	assert.NoError(t, tr.Track(op2))
	assert.Equal(t, 2, tr.PendingCount())

	reader.mined <- nil
	reader.mined <- nil

	waitFor(t, func() bool { return canvas.IsMinted(1, 1) && canvas.IsMinted(2, 2) })
	owner1, _ := canvas.OwnerOf(1, 1)
	owner2, _ := canvas.OwnerOf(2, 2)
	assert.Equal(t, "0xone", owner1)
	assert.Equal(t, "0xtwo", owner2)
}

func TestTrackerModeResetAfterDelegate(t *testing.T) {
	reader := newFakeOpReader()
	tr, canvas, _ := newTestTracker(reader)

	resetCh := make(chan string, 1)
	tr.OnModeReset(func(kind string) { resetCh <- kind })

	op := schema.PendingOp{
		TxHash:    "0xfff",
		Kind:      schema.OpKindDelegate,
		Cells:     []string{schema.CellKey(4, 4)},
		BatchSize: 1,
	}
	canvas.MarkPending(schema.OpKindUpdate, op.Cells...)
	assert.NoError(t, tr.Track(op))
	reader.mined <- nil

	select {
	case kind := <-resetCh:
		assert.Equal(t, schema.OpKindDelegate, kind)
	case <-time.After(2 * time.Second):
		assert.Fail(t, "mode reset callback not fired")
	}
}

func TestHumanReason(t *testing.T) {
	assert.Equal(t, "Transaction rejected by user", humanReason(errors.New("User rejected the request"), "x"))
	assert.Equal(t, "Insufficient funds for transaction", humanReason(errors.New("insufficient funds for gas"), "x"))
	assert.Equal(t, "Transaction reverted by contract", humanReason(errors.New("execution reverted: not owner"), "x"))
	assert.Equal(t, "fallback text", humanReason(errors.New("weird"), "fallback text"))
}
