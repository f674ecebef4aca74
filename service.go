package pxgated

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moonpixels/pxgated/pxnft"
	"github.com/moonpixels/pxgated/schema"
)

// ContractCaller is the mutating and pre-check surface of the pixel contract,
// split out so submission logic is testable without a chain.
type ContractCaller interface {
	SenderAddress() string

	Mint(ctx context.Context, x, y int, color string) (string, error)
	BatchMint(ctx context.Context, xs, ys []*big.Int, colors []string) (string, error)
	UpdateColor(ctx context.Context, x, y int, color string, fee *big.Int) (string, error)
	BatchUpdateColor(ctx context.Context, xs, ys []*big.Int, colors []string, fee *big.Int) (string, error)
	ComposePixels(ctx context.Context, x0, y0, x1, y1 int) (string, error)
	DecomposePixels(ctx context.Context, compositeId uint64) (string, error)
	ApprovePixelMulti(ctx context.Context, x, y int, operator string) (string, error)
	BatchApprovePixelMulti(ctx context.Context, xs, ys []*big.Int, operators []string) (string, error)
	RevokePixelMulti(ctx context.Context, x, y int, operator string) (string, error)
	BatchRevokePixelMulti(ctx context.Context, xs, ys []*big.Int, operators []string) (string, error)

	CalculateUpdateFee(ctx context.Context, x, y int, updater string) (*big.Int, bool, error)
	CalculateBatchUpdateFee(ctx context.Context, xs, ys []*big.Int, updater string) (*big.Int, int64, error)
	IsPixelAuthorized(ctx context.Context, x, y int, operator string) (bool, error)
	HasExemption(ctx context.Context, account string) (bool, error)
	GetOwnedPixelsInArea(ctx context.Context, x0, y0, x1, y1 int, owner string) ([]uint64, error)
	GetPixelApprovalCount(ctx context.Context, x, y int) (int64, error)
	GetPixelApprovedAddressesList(ctx context.Context, x, y int) ([]string, error)
}

var _ ContractCaller = (*pxnft.Client)(nil)

// track registers the submitted op with the watcher and the history ledger.
// The op watcher runs on the tracker's own context; a duplicate hash means
// the transaction is already broadcast and watched, so this submission's
// pending marks are rolled back instead of being stranded.
func (s *PxGated) track(kind, txHash string, cells []string) error {
	op := schema.PendingOp{
		TxHash:    txHash,
		Kind:      kind,
		Cells:     cells,
		BatchSize: len(cells),
		Timestamp: time.Now().UnixMilli(),
	}
	if s.wdb != nil {
		if err := s.wdb.InsertOp(schema.OpRecord{
			TxHash:    txHash,
			Kind:      kind,
			Sender:    s.caller.SenderAddress(),
			BatchSize: len(cells),
			Status:    schema.OpStatusPending,
		}); err != nil {
			log.Error("insert op record", "txHash", txHash, "err", err)
		}
	}
	if err := s.tracker.Track(op); err != nil {
		s.canvas.ClearPending(cells...)
		log.Warn("track op", "kind", kind, "txHash", txHash, "err", err)
		return err
	}
	return nil
}

// submitFailed rolls back the optimistic marks after a rejected submission.
func (s *PxGated) submitFailed(kind string, cells []string, err error) error {
	s.canvas.ClearPending(cells...)
	title := "Transaction failed"
	if kind == schema.OpKindMint || kind == schema.OpKindBatch {
		title = "Mint failed"
	}
	s.notify.Add(schema.NotifyError, title, humanReason(err, "Transaction failed"), "")
	return err
}

// MintPixel submits a single mint. The cell is marked pending before the
// network call resolves.
func (s *PxGated) MintPixel(ctx context.Context, x, y int, color string) (string, error) {
	if _, err := ToID(x, y); err != nil {
		return "", err
	}
	if !ValidColor(color) {
		return "", ErrInvalidColor
	}
	if s.canvas.IsMinted(x, y) {
		return "", ErrAlreadyMinted
	}
	if s.canvas.IsPending(x, y) {
		return "", ErrCellPending
	}

	key := schema.CellKey(x, y)
	s.canvas.MarkPending(schema.OpKindMint, key)
	s.notify.Add(schema.NotifyInfo, "Minting pixel", fmt.Sprintf("Minting pixel (%d, %d)...", x, y), "")

	txHash, err := s.caller.Mint(ctx, x, y, color)
	if err != nil {
		return "", s.submitFailed(schema.OpKindMint, []string{key}, err)
	}
	return txHash, s.track(schema.OpKindMint, txHash, []string{key})
}

// UpdatePixel submits a color update with the contract-quoted fee, after
// checking the sender may touch the cell.
func (s *PxGated) UpdatePixel(ctx context.Context, x, y int, color string) (string, error) {
	if _, err := ToID(x, y); err != nil {
		return "", err
	}
	if !ValidColor(color) {
		return "", ErrInvalidColor
	}
	if !s.canvas.IsMinted(x, y) {
		return "", ErrNotMinted
	}
	if s.canvas.IsPending(x, y) {
		return "", ErrCellPending
	}

	sender := s.caller.SenderAddress()
	var (
		wg         sync.WaitGroup
		authorized bool
		exempt     bool
		authErr    error
		exemptErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		authorized, authErr = s.caller.IsPixelAuthorized(ctx, x, y, sender)
	}()
	go func() {
		defer wg.Done()
		exempt, exemptErr = s.caller.HasExemption(ctx, sender)
	}()
	wg.Wait()
	if authErr != nil {
		return "", authErr
	}
	if exemptErr != nil {
		log.Warn("exemption check failed", "sender", sender, "err", exemptErr)
	}
	if !authorized && !exempt {
		return "", ErrNotOwner
	}

	fee := big.NewInt(0)
	if !exempt {
		quoted, feeExempt, err := s.caller.CalculateUpdateFee(ctx, x, y, sender)
		if err != nil {
			return "", err
		}
		if !feeExempt {
			fee = quoted
		}
	}

	key := schema.CellKey(x, y)
	s.canvas.MarkPending(schema.OpKindUpdate, key)
	s.notify.Add(schema.NotifyInfo, "Updating pixel",
		fmt.Sprintf("Updating pixel (%d, %d)%s...", x, y, feeSuffix(fee)), "")

	txHash, err := s.caller.UpdateColor(ctx, x, y, color, fee)
	if err != nil {
		return "", s.submitFailed(schema.OpKindUpdate, []string{key}, err)
	}
	return txHash, s.track(schema.OpKindUpdate, txHash, []string{key})
}

// BatchMintPixels mints a set of cells in one transaction. Cells that are
// already minted or pending are dropped without error; an empty remainder is
// a validation error.
func (s *PxGated) BatchMintPixels(ctx context.Context, cells []schema.Cell) (string, error) {
	valid := make([]schema.Cell, 0, len(cells))
	for _, cell := range cells {
		if _, err := ToID(cell.X, cell.Y); err != nil {
			return "", err
		}
		if !ValidColor(cell.Color) {
			return "", ErrInvalidColor
		}
		if s.canvas.IsMinted(cell.X, cell.Y) || s.canvas.IsPending(cell.X, cell.Y) {
			continue
		}
		valid = append(valid, cell)
	}
	if len(valid) == 0 {
		return "", fmt.Errorf("no valid pixels: %w", ErrEmptySelection)
	}

	keys := make([]string, len(valid))
	xs := make([]int, len(valid))
	ys := make([]int, len(valid))
	colors := make([]string, len(valid))
	for i, cell := range valid {
		keys[i] = schema.CellKey(cell.X, cell.Y)
		xs[i] = cell.X
		ys[i] = cell.Y
		colors[i] = cell.Color
	}
	s.canvas.MarkPending(schema.OpKindMint, keys...)
	s.notify.Add(schema.NotifyInfo, "Minting pixels", fmt.Sprintf("Minting %d pixels...", len(valid)), "")

	txHash, err := s.caller.BatchMint(ctx, pxnft.ToBigInts(xs), pxnft.ToBigInts(ys), colors)
	if err != nil {
		return "", s.submitFailed(schema.OpKindBatch, keys, err)
	}
	return txHash, s.track(schema.OpKindBatch, txHash, keys)
}

// BatchUpdatePixels updates a set of minted cells in one transaction. Only
// minted, non-pending cells the sender may touch are kept.
func (s *PxGated) BatchUpdatePixels(ctx context.Context, cells []schema.Cell) (string, error) {
	candidates := make([]schema.Cell, 0, len(cells))
	for _, cell := range cells {
		if _, err := ToID(cell.X, cell.Y); err != nil {
			return "", err
		}
		if !ValidColor(cell.Color) {
			return "", ErrInvalidColor
		}
		if !s.canvas.IsMinted(cell.X, cell.Y) || s.canvas.IsPending(cell.X, cell.Y) {
			continue
		}
		candidates = append(candidates, cell)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no valid pixels: %w", ErrEmptySelection)
	}

	sender := s.caller.SenderAddress()
	exempt, err := s.caller.HasExemption(ctx, sender)
	if err != nil {
		log.Warn("exemption check failed", "sender", sender, "err", err)
		exempt = false
	}

	valid := candidates
	if !exempt {
		valid = make([]schema.Cell, 0, len(candidates))
		for _, cell := range candidates {
			ok, err := s.caller.IsPixelAuthorized(ctx, cell.X, cell.Y, sender)
			if err != nil {
				return "", err
			}
			if ok {
				valid = append(valid, cell)
			}
		}
		if len(valid) == 0 {
			return "", ErrNotOwner
		}
	}

	keys := make([]string, len(valid))
	xs := make([]int, len(valid))
	ys := make([]int, len(valid))
	colors := make([]string, len(valid))
	for i, cell := range valid {
		keys[i] = schema.CellKey(cell.X, cell.Y)
		xs[i] = cell.X
		ys[i] = cell.Y
		colors[i] = cell.Color
	}
	bigXs, bigYs := pxnft.ToBigInts(xs), pxnft.ToBigInts(ys)

	fee := big.NewInt(0)
	if !exempt {
		quoted, _, err := s.caller.CalculateBatchUpdateFee(ctx, bigXs, bigYs, sender)
		if err != nil {
			return "", err
		}
		fee = quoted
	}

	s.canvas.MarkPending(schema.OpKindUpdate, keys...)
	s.notify.Add(schema.NotifyInfo, "Updating pixels",
		fmt.Sprintf("Updating %d pixels%s...", len(valid), feeSuffix(fee)), "")

	txHash, err := s.caller.BatchUpdateColor(ctx, bigXs, bigYs, colors, fee)
	if err != nil {
		return "", s.submitFailed(schema.OpKindBatch, keys, err)
	}
	return txHash, s.track(schema.OpKindBatch, txHash, keys)
}

// MintDrawn submits the tracked draw set as a batch mint and clears it on a
// successful submission.
func (s *PxGated) MintDrawn(ctx context.Context) (string, error) {
	cells := s.drawnCells()
	txHash, err := s.BatchMintPixels(ctx, cells)
	if err != nil {
		return "", err
	}
	s.canvas.ClearDrawn()
	return txHash, nil
}

// UpdateDrawn submits the tracked draw set as a batch update.
func (s *PxGated) UpdateDrawn(ctx context.Context) (string, error) {
	cells := s.drawnCells()
	txHash, err := s.BatchUpdatePixels(ctx, cells)
	if err != nil {
		return "", err
	}
	s.canvas.ClearDrawn()
	return txHash, nil
}

func (s *PxGated) drawnCells() []schema.Cell {
	drawn := s.canvas.Drawn()
	cells := make([]schema.Cell, 0, len(drawn))
	for key, color := range drawn {
		x, y, err := parseCellKey(key)
		if err != nil {
			continue
		}
		cells = append(cells, schema.Cell{X: x, Y: y, Color: color})
	}
	return cells
}

// ComposeArea merges owned pixels inside the rectangle into a composite.
// Requires at least two owned cells, counted on chain with a local fallback.
func (s *PxGated) ComposeArea(ctx context.Context, x0, y0, x1, y1 int) (string, error) {
	if _, err := ToID(x0, y0); err != nil {
		return "", err
	}
	if _, err := ToID(x1, y1); err != nil {
		return "", err
	}
	if x1 < x0 || y1 < y0 {
		return "", ErrOutOfRange
	}

	owned, err := s.ownedInArea(ctx, x0, y0, x1, y1)
	if err != nil {
		return "", err
	}
	if len(owned) < 2 {
		return "", fmt.Errorf("own %d pixels in area, need at least 2: %w", len(owned), ErrNotComposable)
	}

	s.canvas.MarkPending(schema.OpKindUpdate, owned...)
	s.notify.Add(schema.NotifyInfo, "Composing pixels",
		fmt.Sprintf("Composing %d pixels...", len(owned)), "")

	txHash, err := s.caller.ComposePixels(ctx, x0, y0, x1, y1)
	if err != nil {
		return "", s.submitFailed(schema.OpKindCompose, owned, err)
	}
	return txHash, s.track(schema.OpKindCompose, txHash, owned)
}

// ownedInArea lists the sender's cell keys inside the rectangle, preferring
// the contract view and falling back to the local mirror.
func (s *PxGated) ownedInArea(ctx context.Context, x0, y0, x1, y1 int) ([]string, error) {
	sender := s.caller.SenderAddress()
	ids, err := s.caller.GetOwnedPixelsInArea(ctx, x0, y0, x1, y1, sender)
	if err == nil {
		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			x, y, err := FromID(id)
			if err != nil {
				continue
			}
			keys = append(keys, schema.CellKey(x, y))
		}
		return keys, nil
	}
	log.Warn("owned-pixels read failed, falling back to local state", "err", err)

	keys := make([]string, 0)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			owner, ok := s.canvas.OwnerOf(x, y)
			if ok && strings.EqualFold(owner, sender) {
				keys = append(keys, schema.CellKey(x, y))
			}
		}
	}
	return keys, nil
}

// DecomposeComposite splits a composite token back into its pixels. No cell
// keys are known locally, so reconciliation only refreshes the counters.
func (s *PxGated) DecomposeComposite(ctx context.Context, compositeId uint64) (string, error) {
	s.notify.Add(schema.NotifyInfo, "Decomposing", fmt.Sprintf("Decomposing composite #%d...", compositeId), "")
	txHash, err := s.caller.DecomposePixels(ctx, compositeId)
	if err != nil {
		return "", s.submitFailed(schema.OpKindCompose, nil, err)
	}
	return txHash, s.track(schema.OpKindCompose, txHash, nil)
}

// DelegatePixel approves another address on one owned cell.
func (s *PxGated) DelegatePixel(ctx context.Context, x, y int, operator string) (string, error) {
	if err := s.checkDelegatable(x, y, operator); err != nil {
		return "", err
	}
	key := schema.CellKey(x, y)
	s.canvas.MarkPending(schema.OpKindUpdate, key)
	s.notify.Add(schema.NotifyInfo, "Delegating pixel",
		fmt.Sprintf("Delegating pixel (%d, %d)...", x, y), "")

	txHash, err := s.caller.ApprovePixelMulti(ctx, x, y, operator)
	if err != nil {
		return "", s.submitFailed(schema.OpKindDelegate, []string{key}, err)
	}
	return txHash, s.track(schema.OpKindDelegate, txHash, []string{key})
}

// BatchDelegate approves the operators on every owned cell of the set.
func (s *PxGated) BatchDelegate(ctx context.Context, coords []schema.Cell, operators []string) (string, error) {
	keys, xs, ys, err := s.delegatableSet(coords, operators)
	if err != nil {
		return "", err
	}
	s.canvas.MarkPending(schema.OpKindUpdate, keys...)
	s.notify.Add(schema.NotifyInfo, "Delegating pixels",
		fmt.Sprintf("Delegating %d pixels...", len(keys)), "")

	txHash, err := s.caller.BatchApprovePixelMulti(ctx, xs, ys, operators)
	if err != nil {
		return "", s.submitFailed(schema.OpKindDelegate, keys, err)
	}
	return txHash, s.track(schema.OpKindDelegate, txHash, keys)
}

// RevokeDelegation removes one operator from one owned cell.
func (s *PxGated) RevokeDelegation(ctx context.Context, x, y int, operator string) (string, error) {
	if err := s.checkDelegatable(x, y, operator); err != nil {
		return "", err
	}
	key := schema.CellKey(x, y)
	s.canvas.MarkPending(schema.OpKindUpdate, key)
	s.notify.Add(schema.NotifyInfo, "Revoking delegation",
		fmt.Sprintf("Revoking delegation on pixel (%d, %d)...", x, y), "")

	txHash, err := s.caller.RevokePixelMulti(ctx, x, y, operator)
	if err != nil {
		return "", s.submitFailed(schema.OpKindRevoke, []string{key}, err)
	}
	return txHash, s.track(schema.OpKindRevoke, txHash, []string{key})
}

// BatchRevoke removes the operators from every owned cell of the set.
func (s *PxGated) BatchRevoke(ctx context.Context, coords []schema.Cell, operators []string) (string, error) {
	keys, xs, ys, err := s.delegatableSet(coords, operators)
	if err != nil {
		return "", err
	}
	s.canvas.MarkPending(schema.OpKindUpdate, keys...)
	s.notify.Add(schema.NotifyInfo, "Revoking delegations",
		fmt.Sprintf("Revoking delegations on %d pixels...", len(keys)), "")

	txHash, err := s.caller.BatchRevokePixelMulti(ctx, xs, ys, operators)
	if err != nil {
		return "", s.submitFailed(schema.OpKindRevoke, keys, err)
	}
	return txHash, s.track(schema.OpKindRevoke, txHash, keys)
}

func (s *PxGated) checkDelegatable(x, y int, operator string) error {
	if _, err := ToID(x, y); err != nil {
		return err
	}
	if !ValidAddress(operator) {
		return ErrInvalidAddress
	}
	if !s.canvas.IsMinted(x, y) {
		return ErrNotMinted
	}
	owner, ok := s.canvas.OwnerOf(x, y)
	if !ok || !strings.EqualFold(owner, s.caller.SenderAddress()) {
		return ErrNotOwner
	}
	return nil
}

// delegatableSet filters the coordinate set down to cells the sender owns.
// Unowned and unminted cells are dropped silently, mirroring batch mint.
func (s *PxGated) delegatableSet(coords []schema.Cell, operators []string) (keys []string, xs, ys []*big.Int, err error) {
	if len(operators) == 0 {
		return nil, nil, nil, ErrInvalidAddress
	}
	for _, op := range operators {
		if !ValidAddress(op) {
			return nil, nil, nil, ErrInvalidAddress
		}
	}
	sender := s.caller.SenderAddress()
	rawXs := make([]int, 0, len(coords))
	rawYs := make([]int, 0, len(coords))
	for _, c := range coords {
		if _, err := ToID(c.X, c.Y); err != nil {
			return nil, nil, nil, err
		}
		owner, ok := s.canvas.OwnerOf(c.X, c.Y)
		if !ok || !strings.EqualFold(owner, sender) {
			continue
		}
		keys = append(keys, schema.CellKey(c.X, c.Y))
		rawXs = append(rawXs, c.X)
		rawYs = append(rawYs, c.Y)
	}
	if len(keys) == 0 {
		return nil, nil, nil, fmt.Errorf("no owned pixels in selection: %w", ErrEmptySelection)
	}
	return keys, pxnft.ToBigInts(rawXs), pxnft.ToBigInts(rawYs), nil
}

// DelegationInfo reads a cell's approval count and approved address list.
func (s *PxGated) DelegationInfo(ctx context.Context, x, y int) (int64, []string, error) {
	if _, err := ToID(x, y); err != nil {
		return 0, nil, err
	}
	count, err := s.caller.GetPixelApprovalCount(ctx, x, y)
	if err != nil {
		return 0, nil, err
	}
	addrs, err := s.caller.GetPixelApprovedAddressesList(ctx, x, y)
	if err != nil {
		return 0, nil, err
	}
	return count, addrs, nil
}

// feeSuffix renders a non-zero wei fee for notification text.
func feeSuffix(fee *big.Int) string {
	if fee == nil || fee.Sign() == 0 {
		return ""
	}
	mon := decimal.NewFromBigInt(fee, -18)
	return fmt.Sprintf(" (fee %s MON)", mon.String())
}
