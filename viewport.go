package pxgated

import (
	"math"

	"github.com/moonpixels/pxgated/schema"
)

// Viewport is the visible square window into the canvas, in cell units.
type Viewport struct {
	X    int `json:"x"` // top-left
	Y    int `json:"y"`
	Size int `json:"size"`
}

func NewViewport() Viewport {
	return Viewport{X: 0, Y: 0, Size: schema.MinViewportSize}
}

func (v Viewport) CenterX() float64 { return float64(v.X) + float64(v.Size)/2 }
func (v Viewport) CenterY() float64 { return float64(v.Y) + float64(v.Size)/2 }

// clamp keeps the viewport fully inside the canvas.
func (v Viewport) clamp() Viewport {
	if v.Size < schema.MinViewportSize {
		v.Size = schema.MinViewportSize
	}
	if v.Size > schema.MaxViewportSize {
		v.Size = schema.MaxViewportSize
	}
	v.X = clampInt(v.X, 0, schema.CanvasWidth-min(v.Size, schema.CanvasWidth))
	v.Y = clampInt(v.Y, 0, schema.CanvasHeight-min(v.Size, schema.CanvasHeight))
	return v
}

// ZoomIn shrinks the viewport by one step, keeping anchor (or center) fixed.
// anchorX/anchorY are world coordinates; pass negative values to use the center.
func (v Viewport) ZoomIn(anchorX, anchorY float64) Viewport {
	newSize := v.Size - schema.ZoomStep
	if newSize < schema.MinViewportSize {
		newSize = schema.MinViewportSize
	}
	if newSize == v.Size {
		return v
	}
	return v.reanchor(newSize, anchorX, anchorY)
}

// ZoomOut grows the viewport by one step.
func (v Viewport) ZoomOut(anchorX, anchorY float64) Viewport {
	newSize := v.Size + schema.ZoomStep
	if newSize > schema.MaxViewportSize {
		newSize = schema.MaxViewportSize
	}
	if newSize == v.Size {
		return v
	}
	return v.reanchor(newSize, anchorX, anchorY)
}

func (v Viewport) reanchor(newSize int, anchorX, anchorY float64) Viewport {
	cx := anchorX
	cy := anchorY
	if cx < 0 {
		cx = v.CenterX()
	}
	if cy < 0 {
		cy = v.CenterY()
	}
	nv := Viewport{
		X:    int(math.Floor(cx - float64(newSize)/2)),
		Y:    int(math.Floor(cy - float64(newSize)/2)),
		Size: newSize,
	}
	return nv.clamp()
}

// Pan shifts the viewport by a screen-pixel delta. Deltas below twice the
// cell pixel size are ignored so small jitters during a drag don't move the
// view; at or above the threshold the shift is floor(delta/PixelSize) cells.
func (v Viewport) Pan(deltaXPx, deltaYPx int) Viewport {
	threshold := schema.PixelSize * 2
	if abs(deltaXPx) < threshold && abs(deltaYPx) < threshold {
		return v
	}
	nv := v
	nv.X -= int(math.Floor(float64(deltaXPx) / schema.PixelSize))
	nv.Y -= int(math.Floor(float64(deltaYPx) / schema.PixelSize))
	return nv.clamp()
}

// GoTo centers the viewport on the given cell.
func (v Viewport) GoTo(x, y int) (Viewport, error) {
	if x < 0 || x >= schema.CanvasWidth || y < 0 || y >= schema.CanvasHeight {
		return v, ErrInvalidCoordinate
	}
	nv := Viewport{
		X:    x - v.Size/2,
		Y:    y - v.Size/2,
		Size: v.Size,
	}
	return nv.clamp(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
