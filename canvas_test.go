package pxgated

import (
	"testing"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

func TestCanvasMergeAndRead(t *testing.T) {
	c := NewCanvas()
	c.MergeCell(schema.Cell{X: 3, Y: 7, Color: "#e50000", Owner: "0xabc", Minted: true})

	assert.True(t, c.IsMinted(3, 7))
	assert.Equal(t, "#e50000", c.ColorOf(3, 7))
	owner, ok := c.OwnerOf(3, 7)
	assert.True(t, ok)
	assert.Equal(t, "0xabc", owner)

	// unknown cell renders the background
	assert.False(t, c.IsMinted(0, 0))
	assert.Equal(t, schema.DefaultBackground, c.ColorOf(0, 0))
	_, ok = c.OwnerOf(0, 0)
	assert.False(t, ok)
}

func TestCanvasMergeDoesNotClearPending(t *testing.T) {
	c := NewCanvas()
	key := schema.CellKey(1, 1)
	c.MarkPending(schema.OpKindUpdate, key)
	c.MergeCell(schema.Cell{X: 1, Y: 1, Color: "#222222", Owner: "0xabc", Minted: true})
	assert.True(t, c.IsPending(1, 1))
}

func TestCanvasApplyAuthoritativeClearsPending(t *testing.T) {
	c := NewCanvas()
	key := schema.CellKey(5, 5)
	c.MarkPending(schema.OpKindMint, key)
	assert.True(t, c.IsPending(5, 5))

	c.ApplyAuthoritative(5, 5, "#02be01", "0xowner")
	assert.False(t, c.IsPending(5, 5))
	assert.True(t, c.IsMinted(5, 5))
	owner, _ := c.OwnerOf(5, 5)
	assert.Equal(t, "0xowner", owner)

	// second apply is a harmless no-op
	c.ApplyAuthoritative(5, 5, "#02be01", "0xowner")
	assert.Equal(t, "#02be01", c.ColorOf(5, 5))
}

func TestCanvasDrawnColorOverridesUnminted(t *testing.T) {
	c := NewCanvas()
	assert.NoError(t, c.AddDrawn(2, 2, "#0000ea"))
	assert.Equal(t, "#0000ea", c.ColorOf(2, 2))

	// minted cell keeps its stored color even when drawn over
	c.MergeCell(schema.Cell{X: 2, Y: 2, Color: "#e59500", Owner: "0xabc", Minted: true})
	assert.Equal(t, "#e59500", c.ColorOf(2, 2))

	c.RemoveDrawn(2, 2)
	drawn := c.Drawn()
	assert.Empty(t, drawn)
}

func TestCanvasAddDrawnRejectsPending(t *testing.T) {
	c := NewCanvas()
	c.MarkPending(schema.OpKindMint, schema.CellKey(9, 9))
	assert.ErrorIs(t, c.AddDrawn(9, 9, "#ffffff"), ErrCellPending)
}

func TestCellsInView(t *testing.T) {
	c := NewCanvas()
	c.MergeCell(schema.Cell{X: 0, Y: 0, Color: "#222222", Minted: true})
	c.MergeCell(schema.Cell{X: 20, Y: 20, Color: "#222222", Minted: true})

	cells := c.CellsInView(Viewport{X: 0, Y: 0, Size: 10})
	assert.Len(t, cells, 1)
	assert.Equal(t, 0, cells[0].X)
}
