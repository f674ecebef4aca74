package schema

import "fmt"

const (
	CanvasWidth  = 150
	CanvasHeight = 150

	MinViewportSize = 10 // most zoomed in
	MaxViewportSize = 100
	ZoomStep        = 5
	PixelSize       = 8 // screen pixels per cell

	ChunkSize = 5 // cells per chunk edge

	DefaultBackground = "#ffffff"
)

type Cell struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Owner  string `json:"owner"`
	Minted bool   `json:"minted"`
}

// Chunk is the unit of range fetch, bounds inclusive.
type Chunk struct {
	X0, Y0, X1, Y1 int
	Priority       float64 // distance from viewport center, lower loads first
}

func (c Chunk) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d", c.X0, c.Y0, c.X1, c.Y1)
}

func CellKey(x, y int) string {
	return fmt.Sprintf("%d-%d", x, y)
}
