package pxgated

import (
	"github.com/moonpixels/pxgated/schema"
)

// ToID maps a cell coordinate to its token id: id = y*width + x.
func ToID(x, y int) (uint64, error) {
	if x < 0 || x >= schema.CanvasWidth || y < 0 || y >= schema.CanvasHeight {
		return 0, ErrInvalidCoordinate
	}
	return uint64(y)*schema.CanvasWidth + uint64(x), nil
}

// FromID is the inverse of ToID.
func FromID(id uint64) (x, y int, err error) {
	if id >= schema.CanvasWidth*schema.CanvasHeight {
		return 0, 0, ErrInvalidCoordinate
	}
	x = int(id % schema.CanvasWidth)
	y = int(id / schema.CanvasWidth)
	return
}
