package pxgated

import (
	"testing"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

func TestZoomSymmetry(t *testing.T) {
	v := Viewport{X: 40, Y: 40, Size: 50}
	for steps := 1; steps <= 5; steps++ {
		nv := v
		for i := 0; i < steps; i++ {
			nv = nv.ZoomIn(-1, -1)
		}
		for i := 0; i < steps; i++ {
			nv = nv.ZoomOut(-1, -1)
		}
		assert.Equal(t, v.Size, nv.Size, "steps=%d", steps)
	}
}

func TestZoomClampsAtBounds(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Size: schema.MinViewportSize}
	assert.Equal(t, schema.MinViewportSize, v.ZoomIn(-1, -1).Size)

	v = Viewport{X: 0, Y: 0, Size: schema.MaxViewportSize}
	assert.Equal(t, schema.MaxViewportSize, v.ZoomOut(-1, -1).Size)
}

func TestZoomOutStaysInsideCanvas(t *testing.T) {
	v := Viewport{X: 140, Y: 140, Size: schema.MinViewportSize}
	nv := v.ZoomOut(-1, -1)
	assert.LessOrEqual(t, nv.X+nv.Size, schema.CanvasWidth)
	assert.LessOrEqual(t, nv.Y+nv.Size, schema.CanvasHeight)
	assert.GreaterOrEqual(t, nv.X, 0)
	assert.GreaterOrEqual(t, nv.Y, 0)
}

func TestPanThreshold(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Size: 10}

	// below 2*PixelSize: ignored
	nv := v.Pan(5, 5)
	assert.Equal(t, v, nv)

	nv = v.Pan(schema.PixelSize*2-1, 0)
	assert.Equal(t, v, nv)
}

func TestPanShiftsByCellDelta(t *testing.T) {
	v := Viewport{X: 50, Y: 50, Size: 10}

	// drag right by 16px moves the viewport left by floor(16/8)=2 cells
	nv := v.Pan(16, 16)
	assert.Equal(t, 48, nv.X)
	assert.Equal(t, 48, nv.Y)

	// clamped at the origin
	v = Viewport{X: 1, Y: 1, Size: 10}
	nv = v.Pan(80, 80)
	assert.Equal(t, 0, nv.X)
	assert.Equal(t, 0, nv.Y)

	// clamped at the far edge
	v = Viewport{X: 139, Y: 139, Size: 10}
	nv = v.Pan(-80, -80)
	assert.Equal(t, schema.CanvasWidth-10, nv.X)
	assert.Equal(t, schema.CanvasHeight-10, nv.Y)
}

func TestGoTo(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Size: 20}
	nv, err := v.GoTo(75, 75)
	assert.NoError(t, err)
	assert.Equal(t, 65, nv.X)
	assert.Equal(t, 65, nv.Y)

	_, err = v.GoTo(200, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
