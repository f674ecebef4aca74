package pxgated

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/moonpixels/pxgated/schema"
	"github.com/stretchr/testify/assert"
)

type fakeRangeReader struct {
	lock  sync.Mutex
	calls []string
	fail  map[string]bool
	cells map[string]schema.Cell // key -> cell returned for its chunk
}

func newFakeRangeReader() *fakeRangeReader {
	return &fakeRangeReader{
		fail:  make(map[string]bool),
		cells: make(map[string]schema.Cell),
	}
}

func (f *fakeRangeReader) ReadRange(_ context.Context, x0, y0, x1, y1 int) ([]uint64, []string, []string, error) {
	key := fmt.Sprintf("%d-%d-%d-%d", x0, y0, x1, y1)
	f.lock.Lock()
	f.calls = append(f.calls, key)
	failed := f.fail[key]
	f.lock.Unlock()

	if failed {
		return nil, nil, nil, fmt.Errorf("rpc timeout")
	}

	var ids []uint64
	var owners, colors []string
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, cell := range f.cells {
		if cell.X >= x0 && cell.X <= x1 && cell.Y >= y0 && cell.Y <= y1 {
			id, _ := ToID(cell.X, cell.Y)
			ids = append(ids, id)
			owners = append(owners, cell.Owner)
			colors = append(colors, cell.Color)
		}
	}
	return ids, owners, colors, nil
}

func (f *fakeRangeReader) callCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.calls)
}

func TestLoaderPopulatesCanvas(t *testing.T) {
	reader := newFakeRangeReader()
	reader.cells["10-20"] = schema.Cell{X: 10, Y: 20, Color: "#e50000", Owner: "0xabc", Minted: true}

	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond

	vp := Viewport{X: 5, Y: 15, Size: 10}
	assert.NoError(t, l.LoadVisible(context.Background(), vp))

	assert.True(t, canvas.IsMinted(10, 20))
	assert.Equal(t, "#e50000", canvas.ColorOf(10, 20))
	owner, _ := canvas.OwnerOf(10, 20)
	assert.Equal(t, "0xabc", owner)
}

func TestLoaderNeverLeavesCanvas(t *testing.T) {
	reader := newFakeRangeReader()
	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond

	// viewport at the far corner; buffer would overflow without clipping
	vp := Viewport{X: 140, Y: 140, Size: 10}
	assert.NoError(t, l.LoadVisible(context.Background(), vp))

	for _, key := range reader.calls {
		var x0, y0, x1, y1 int
		_, err := fmt.Sscanf(key, "%d-%d-%d-%d", &x0, &y0, &x1, &y1)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, x0, 0)
		assert.GreaterOrEqual(t, y0, 0)
		assert.Less(t, x1, schema.CanvasWidth)
		assert.Less(t, y1, schema.CanvasHeight)
	}
}

func TestLoaderDoesNotRefetchLoadedChunks(t *testing.T) {
	reader := newFakeRangeReader()
	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond

	vp := Viewport{X: 0, Y: 0, Size: 10}
	assert.NoError(t, l.LoadVisible(context.Background(), vp))
	first := reader.callCount()
	assert.Greater(t, first, 0)

	assert.NoError(t, l.LoadVisible(context.Background(), vp))
	second := reader.callCount()
	// the second pass uses the bigger buffer, so new edge chunks may appear,
	// but nothing already loaded is requested again
	seen := make(map[string]int)
	for _, key := range reader.calls {
		seen[key]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "chunk %s fetched %d times", key, n)
	}

	// a third identical pass adds nothing
	assert.NoError(t, l.LoadVisible(context.Background(), vp))
	assert.Equal(t, second, reader.callCount())
}

func TestLoaderRetriesFailedChunkNextPass(t *testing.T) {
	reader := newFakeRangeReader()
	reader.fail["0-0-4-4"] = true

	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond
	l.initialLoad = false // fixed buffer across passes

	vp := Viewport{X: 0, Y: 0, Size: 10}
	assert.NoError(t, l.LoadVisible(context.Background(), vp))

	reader.lock.Lock()
	reader.fail["0-0-4-4"] = false
	reader.lock.Unlock()

	assert.NoError(t, l.LoadVisible(context.Background(), vp))

	count := 0
	for _, key := range reader.calls {
		if key == "0-0-4-4" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestLoaderInvalidate(t *testing.T) {
	reader := newFakeRangeReader()
	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond
	l.initialLoad = false

	vp := Viewport{X: 0, Y: 0, Size: 10}
	assert.NoError(t, l.LoadVisible(context.Background(), vp))
	first := reader.callCount()

	l.Invalidate()
	assert.NoError(t, l.LoadVisible(context.Background(), vp))
	assert.Equal(t, first*2, reader.callCount())
}

func TestLoaderDebounce(t *testing.T) {
	reader := newFakeRangeReader()
	canvas := NewCanvas()
	l := NewLoader(canvas, reader)
	l.batchDelayOverride = time.Millisecond

	vp := Viewport{X: 0, Y: 0, Size: 10}
	for i := 0; i < 5; i++ {
		l.ViewportChanged(context.Background(), vp)
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 0, reader.callCount())

	time.Sleep(viewportDebounce + 200*time.Millisecond)
	assert.Greater(t, reader.callCount(), 0)
}

func TestChunkPriorityCenterOut(t *testing.T) {
	reader := newFakeRangeReader()
	canvas := NewCanvas()
	l := NewLoader(canvas, reader)

	vp := Viewport{X: 50, Y: 50, Size: 20}
	chunks := l.candidateChunks(vp, false)
	assert.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].Priority, chunks[i].Priority)
	}
}
