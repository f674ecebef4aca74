package pxgated

import (
	"testing"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

func TestToIDFromIDRoundTrip(t *testing.T) {
	for y := 0; y < schema.CanvasHeight; y++ {
		for x := 0; x < schema.CanvasWidth; x++ {
			id, err := ToID(x, y)
			assert.NoError(t, err)
			gx, gy, err := FromID(id)
			assert.NoError(t, err)
			assert.Equal(t, x, gx)
			assert.Equal(t, y, gy)
		}
	}
}

func TestToID(t *testing.T) {
	id, err := ToID(10, 20)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3010), id)
}

func TestToIDRejectsOutOfRange(t *testing.T) {
	_, err := ToID(-1, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = ToID(0, -1)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = ToID(schema.CanvasWidth, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = ToID(0, schema.CanvasHeight)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, _, err = FromID(schema.CanvasWidth * schema.CanvasHeight)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
