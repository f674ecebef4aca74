package pxgated

import (
	"sync"

	"github.com/moonpixels/pxgated/schema"
)

// Canvas is the optimistic pixel state store: the single source of truth for
// what a client should render. Cells are merged last-writer-wins per key;
// pending marks live in separate sets so a chunk merge never stomps them.
type Canvas struct {
	lock sync.RWMutex

	cells          map[string]schema.Cell
	pendingMints   map[string]struct{}
	pendingUpdates map[string]struct{}
	drawn          map[string]string // draw-mode selection, key -> color
	totalMinted    int64
}

func NewCanvas() *Canvas {
	return &Canvas{
		cells:          make(map[string]schema.Cell),
		pendingMints:   make(map[string]struct{}),
		pendingUpdates: make(map[string]struct{}),
		drawn:          make(map[string]string),
	}
}

// MergeCell applies a chunk-load result for one cell.
func (c *Canvas) MergeCell(cell schema.Cell) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cells[schema.CellKey(cell.X, cell.Y)] = cell
}

// ApplyAuthoritative applies a confirmed value (event or fallback re-read)
// and clears any pending mark. Idempotent: applying the same value twice is
// a no-op for readers.
func (c *Canvas) ApplyAuthoritative(x, y int, color, owner string) {
	key := schema.CellKey(x, y)
	c.lock.Lock()
	defer c.lock.Unlock()
	if color == "" {
		color = schema.DefaultBackground
	}
	c.cells[key] = schema.Cell{X: x, Y: y, Color: color, Owner: owner, Minted: true}
	delete(c.pendingMints, key)
	delete(c.pendingUpdates, key)
}

func (c *Canvas) MarkPending(kind string, keys ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, key := range keys {
		if kind == schema.OpKindMint {
			c.pendingMints[key] = struct{}{}
		} else {
			c.pendingUpdates[key] = struct{}{}
		}
	}
}

func (c *Canvas) ClearPending(keys ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, key := range keys {
		delete(c.pendingMints, key)
		delete(c.pendingUpdates, key)
	}
}

func (c *Canvas) ClearAllPending() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.pendingMints = make(map[string]struct{})
	c.pendingUpdates = make(map[string]struct{})
}

func (c *Canvas) IsPending(x, y int) bool {
	key := schema.CellKey(x, y)
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, m := c.pendingMints[key]
	_, u := c.pendingUpdates[key]
	return m || u
}

func (c *Canvas) IsMinted(x, y int) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.cells[schema.CellKey(x, y)].Minted
}

// ColorOf resolves the render color: draw-mode selection wins for unminted
// cells, then the stored color, then the default background.
func (c *Canvas) ColorOf(x, y int) string {
	key := schema.CellKey(x, y)
	c.lock.RLock()
	defer c.lock.RUnlock()
	cell, ok := c.cells[key]
	if drawColor, drawn := c.drawn[key]; drawn && !cell.Minted {
		return drawColor
	}
	if ok && cell.Color != "" {
		return cell.Color
	}
	return schema.DefaultBackground
}

func (c *Canvas) OwnerOf(x, y int) (string, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	cell, ok := c.cells[schema.CellKey(x, y)]
	if !ok || !cell.Minted {
		return "", false
	}
	return cell.Owner, true
}

func (c *Canvas) GetCell(x, y int) (schema.Cell, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	cell, ok := c.cells[schema.CellKey(x, y)]
	return cell, ok
}

// Draw-mode selection.

func (c *Canvas) AddDrawn(x, y int, color string) error {
	if c.IsPending(x, y) {
		return ErrCellPending
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.drawn[schema.CellKey(x, y)] = color
	return nil
}

func (c *Canvas) RemoveDrawn(x, y int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.drawn, schema.CellKey(x, y))
}

func (c *Canvas) ClearDrawn() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.drawn = make(map[string]string)
}

func (c *Canvas) Drawn() map[string]string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make(map[string]string, len(c.drawn))
	for k, v := range c.drawn {
		out[k] = v
	}
	return out
}

func (c *Canvas) TotalMinted() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.totalMinted
}

func (c *Canvas) SetTotalMinted(n int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.totalMinted = n
}

func (c *Canvas) IncrTotalMinted() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.totalMinted++
}

func (c *Canvas) MintedCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.cells)
}

func (c *Canvas) PendingCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.pendingMints) + len(c.pendingUpdates)
}

// Snapshot copies all known cells, for persistence and bulk reads.
func (c *Canvas) Snapshot() []schema.Cell {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]schema.Cell, 0, len(c.cells))
	for _, cell := range c.cells {
		out = append(out, cell)
	}
	return out
}

// CellsInView returns the known cells inside a viewport.
func (c *Canvas) CellsInView(vp Viewport) []schema.Cell {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]schema.Cell, 0)
	maxX := min(schema.CanvasWidth, vp.X+vp.Size)
	maxY := min(schema.CanvasHeight, vp.Y+vp.Size)
	for y := vp.Y; y < maxY; y++ {
		for x := vp.X; x < maxX; x++ {
			if cell, ok := c.cells[schema.CellKey(x, y)]; ok {
				out = append(out, cell)
			}
		}
	}
	return out
}
