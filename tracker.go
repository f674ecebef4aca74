package pxgated

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moonpixels/pxgated/schema"
)

const (
	fallbackDelay  = 2 * time.Second
	modeResetDelay = 1 * time.Second
)

// OpReader is the slice of the contract client the tracker needs to observe
// confirmations and to re-read authoritative cell state.
type OpReader interface {
	WaitMined(ctx context.Context, txHash string) error
	OwnerOf(ctx context.Context, tokenId uint64) (string, error)
	GetColor(ctx context.Context, x, y int) (string, error)
	TotalMinted(ctx context.Context) (int64, error)
}

type opPolicy struct {
	successTitle string
	successMsg   func(op schema.PendingOp) string
	failTitle    string
	failMsg      func(op schema.PendingOp) string
	resetMode    bool // delegate/revoke mode UIs auto-close after success
}

var opPolicies = map[string]opPolicy{
	schema.OpKindMint: {
		successTitle: "Pixel Minted!",
		successMsg:   func(op schema.PendingOp) string { return fmt.Sprintf("Successfully minted pixel at (%s)", cellPos(op)) },
		failTitle:    "Mint Failed",
		failMsg:      func(op schema.PendingOp) string { return fmt.Sprintf("Failed to mint pixel at (%s)", cellPos(op)) },
	},
	schema.OpKindUpdate: {
		successTitle: "Color Updated!",
		successMsg:   func(op schema.PendingOp) string { return fmt.Sprintf("Successfully updated pixel at (%s)", cellPos(op)) },
		failTitle:    "Update Failed",
		failMsg:      func(op schema.PendingOp) string { return fmt.Sprintf("Failed to update pixel at (%s)", cellPos(op)) },
	},
	schema.OpKindBatch: {
		successTitle: "Batch Operation Complete!",
		successMsg: func(op schema.PendingOp) string {
			return fmt.Sprintf("Successfully processed %d pixels!", op.BatchSize)
		},
		failTitle: "Batch Operation Failed",
		failMsg:   func(op schema.PendingOp) string { return "Failed to submit batch transaction" },
	},
	schema.OpKindCompose: {
		successTitle: "Composition Complete!",
		successMsg: func(op schema.PendingOp) string {
			return fmt.Sprintf("Successfully composed %d pixels into NFT!", op.BatchSize)
		},
		failTitle: "Composition Failed",
		failMsg:   func(op schema.PendingOp) string { return "Failed to compose pixels" },
	},
	schema.OpKindDelegate: {
		successTitle: "Delegation Complete!",
		successMsg: func(op schema.PendingOp) string {
			return fmt.Sprintf("Successfully delegated %d pixels!", op.BatchSize)
		},
		failTitle: "Delegation Failed",
		failMsg:   func(op schema.PendingOp) string { return "Failed to delegate pixels" },
		resetMode: true,
	},
	schema.OpKindRevoke: {
		successTitle: "Revocation Complete!",
		successMsg: func(op schema.PendingOp) string {
			return fmt.Sprintf("Successfully revoked access for %d pixels!", op.BatchSize)
		},
		failTitle: "Revocation Failed",
		failMsg:   func(op schema.PendingOp) string { return "Failed to revoke access" },
		resetMode: true,
	},
}

func cellPos(op schema.PendingOp) string {
	if len(op.Cells) == 0 {
		return "?"
	}
	return strings.Replace(op.Cells[0], "-", ", ", 1)
}

type trackedOp struct {
	op             schema.PendingOp
	remaining      map[string]struct{} // cells not yet confirmed by an event
	eventsDone     bool                // all cells event-confirmed before the receipt landed
	cancelFallback context.CancelFunc
}

// Tracker watches outstanding mutating operations, keyed by tx hash so
// concurrent submissions don't clobber each other's reconciliation. Each
// tracked op owns its confirmation watcher and fallback timer; the event path
// cancels the fallback through an explicit per-op cancel func.
type Tracker struct {
	canvas *Canvas
	notify *NotifyCenter
	reader OpReader
	wdb    *Wdb // optional history ledger

	// watchers and fallback timers outlive the submitting request, so they
	// run on the daemon context, never on a request context
	baseCtx context.Context

	lock sync.Mutex
	ops  map[string]*trackedOp

	fallbackDelay  time.Duration
	modeResetDelay time.Duration
	onModeReset    func(kind string)
}

func NewTracker(canvas *Canvas, notify *NotifyCenter, reader OpReader, wdb *Wdb) *Tracker {
	return &Tracker{
		canvas:         canvas,
		notify:         notify,
		reader:         reader,
		wdb:            wdb,
		baseCtx:        context.Background(),
		ops:            make(map[string]*trackedOp),
		fallbackDelay:  fallbackDelay,
		modeResetDelay: modeResetDelay,
	}
}

// BindContext replaces the context confirmation watchers run on, tying their
// lifetime to the daemon run loop instead of the background default.
func (t *Tracker) BindContext(ctx context.Context) {
	t.baseCtx = ctx
}

// OnModeReset registers the callback fired after a successful delegate or
// revoke, once the grace delay has passed.
func (t *Tracker) OnModeReset(fn func(kind string)) {
	t.onModeReset = fn
}

func (t *Tracker) PendingOps() []schema.PendingOp {
	t.lock.Lock()
	defer t.lock.Unlock()
	out := make([]schema.PendingOp, 0, len(t.ops))
	for _, to := range t.ops {
		out = append(out, to.op)
	}
	return out
}

func (t *Tracker) PendingCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.ops)
}

// Track registers a submitted operation and spawns its confirmation watcher.
// The affected cells must already carry their pending marks (set by the
// submit path before the network call resolved).
func (t *Tracker) Track(op schema.PendingOp) error {
	t.lock.Lock()
	if _, ok := t.ops[op.TxHash]; ok {
		t.lock.Unlock()
		return ErrOpExist
	}
	to := &trackedOp{op: op, remaining: make(map[string]struct{}, len(op.Cells))}
	for _, key := range op.Cells {
		to.remaining[key] = struct{}{}
	}
	t.ops[op.TxHash] = to
	t.lock.Unlock()

	metricPendingOps(t.PendingCount())
	go t.watch(t.baseCtx, op)
	return nil
}

func (t *Tracker) watch(ctx context.Context, op schema.PendingOp) {
	err := t.reader.WaitMined(ctx, op.TxHash)
	if err != nil {
		t.fail(op, err)
		return
	}
	t.confirm(ctx, op)
}

func (t *Tracker) confirm(ctx context.Context, op schema.PendingOp) {
	policy := opPolicies[op.Kind]
	t.notify.Add(schema.NotifySuccess, policy.successTitle, policy.successMsg(op), op.TxHash)
	if t.wdb != nil {
		if err := t.wdb.UpdateOpStatus(op.TxHash, schema.OpStatusConfirmed, ""); err != nil {
			log.Error("wdb.UpdateOpStatus", "err", err, "txHash", op.TxHash)
		}
	}

	// fallback: if no event-driven update supersedes it within the window,
	// reconcile by direct re-read. When every cell was already event-confirmed
	// while we waited on the receipt, there is nothing left to reconcile.
	fbCtx, cancel := context.WithCancel(ctx)
	t.lock.Lock()
	settled := false
	if to, ok := t.ops[op.TxHash]; ok {
		if to.eventsDone {
			settled = true
		} else {
			to.cancelFallback = cancel
		}
	}
	t.lock.Unlock()

	if settled {
		cancel()
		t.drop(op.TxHash)
	} else {
		go func() {
			select {
			case <-fbCtx.Done():
				return
			case <-time.After(t.fallbackDelay):
			}
			t.reconcile(ctx, op)
			t.drop(op.TxHash)
		}()
	}

	if policy.resetMode && t.onModeReset != nil {
		kind := op.Kind
		time.AfterFunc(t.modeResetDelay, func() { t.onModeReset(kind) })
	}
}

func (t *Tracker) fail(op schema.PendingOp, cause error) {
	t.canvas.ClearPending(op.Cells...)
	policy := opPolicies[op.Kind]
	t.notify.Add(schema.NotifyError, policy.failTitle, humanReason(cause, policy.failMsg(op)), op.TxHash)
	if t.wdb != nil {
		if err := t.wdb.UpdateOpStatus(op.TxHash, schema.OpStatusFailed, cause.Error()); err != nil {
			log.Error("wdb.UpdateOpStatus", "err", err, "txHash", op.TxHash)
		}
	}
	t.drop(op.TxHash)
	log.Warn("op failed", "kind", op.Kind, "txHash", op.TxHash, "err", cause)
}

// CellConfirmed is called by the event path once an authoritative update for
// a cell has been applied to the canvas. When every cell of an op has been
// covered, its fallback re-read is canceled; if the events beat the receipt
// watcher (the usual case with a live ws subscription), the op is flagged so
// confirm skips arming the fallback entirely.
func (t *Tracker) CellConfirmed(key string) {
	t.lock.Lock()
	var cancel context.CancelFunc
	var done string
	for hash, to := range t.ops {
		if _, ok := to.remaining[key]; !ok {
			continue
		}
		delete(to.remaining, key)
		if len(to.remaining) == 0 {
			if to.cancelFallback != nil {
				cancel = to.cancelFallback
				done = hash
			} else {
				to.eventsDone = true
			}
		}
		break
	}
	t.lock.Unlock()

	if cancel != nil {
		cancel()
		t.drop(done)
	}
}

// reconcile re-reads the affected cells from the contract and applies them.
// Idempotent with the event path: whichever arrives first wins, the other is
// a harmless no-op. Cells that cannot be re-read still lose their pending
// mark so nothing stays pending forever.
func (t *Tracker) reconcile(ctx context.Context, op schema.PendingOp) {
	for _, key := range op.Cells {
		x, y, err := parseCellKey(key)
		if err != nil {
			t.canvas.ClearPending(key)
			continue
		}
		id, _ := ToID(x, y)
		owner, err := t.reader.OwnerOf(ctx, id)
		if err != nil {
			log.Warn("fallback re-read owner", "cell", key, "err", err)
			t.canvas.ClearPending(key)
			continue
		}
		color, err := t.reader.GetColor(ctx, x, y)
		if err != nil {
			log.Warn("fallback re-read color", "cell", key, "err", err)
			color = schema.DefaultBackground
		}
		t.canvas.ApplyAuthoritative(x, y, color, owner)
	}

	if total, err := t.reader.TotalMinted(ctx); err == nil {
		t.canvas.SetTotalMinted(total)
		metricTotalMinted(total)
	}
}

func (t *Tracker) drop(txHash string) {
	t.lock.Lock()
	delete(t.ops, txHash)
	t.lock.Unlock()
	metricPendingOps(t.PendingCount())
}

// humanReason maps raw provider errors to a user-facing message.
func humanReason(err error, fallback string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "User rejected"), strings.Contains(msg, "user rejected"):
		return "Transaction rejected by user"
	case strings.Contains(msg, "insufficient funds"):
		return "Insufficient funds for transaction"
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "tx_reverted"):
		return "Transaction reverted by contract"
	}
	return fallback
}

func parseCellKey(key string) (x, y int, err error) {
	if _, err = fmt.Sscanf(key, "%d-%d", &x, &y); err != nil {
		return 0, 0, ErrInvalidCoordinate
	}
	return
}
