package pxgated

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/moonpixels/pxgated/schema"
	"github.com/panjf2000/ants/v2"
)

const (
	initialLoadBuffer    = 5 // cells around the viewport on the first pass
	subsequentLoadBuffer = 15

	initialConcurrency    = 3
	subsequentConcurrency = 5

	initialBatchDelay    = 100 * time.Millisecond
	subsequentBatchDelay = 200 * time.Millisecond

	viewportDebounce = 300 * time.Millisecond
)

// RangeReader reads all minted cells inside an inclusive rectangle as
// parallel arrays (ids, owners, colors).
type RangeReader interface {
	ReadRange(ctx context.Context, x0, y0, x1, y1 int) (ids []uint64, owners []string, colors []string, err error)
}

// Loader keeps the canvas populated for the visible area. Chunks are fetched
// at most once; a failed chunk never enters the loaded set and is retried by
// omission on the next pass.
type Loader struct {
	canvas *Canvas
	reader RangeReader

	lock          sync.Mutex
	loadedChunks  map[string]struct{}
	loadingChunks map[string]struct{}
	initialLoad   bool
	inFlight      bool

	debounceLock  sync.Mutex
	debounceTimer *time.Timer

	batchDelayOverride time.Duration // tests shorten the inter-batch sleep
}

func NewLoader(canvas *Canvas, reader RangeReader) *Loader {
	return &Loader{
		canvas:        canvas,
		reader:        reader,
		loadedChunks:  make(map[string]struct{}),
		loadingChunks: make(map[string]struct{}),
		initialLoad:   true,
	}
}

// SeedLoaded pre-marks chunk keys as loaded, used when restoring a snapshot.
func (l *Loader) SeedLoaded(keys []string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, k := range keys {
		l.loadedChunks[k] = struct{}{}
	}
	if len(keys) > 0 {
		l.initialLoad = false
	}
}

func (l *Loader) LoadedKeys() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	keys := make([]string, 0, len(l.loadedChunks))
	for k := range l.loadedChunks {
		keys = append(keys, k)
	}
	return keys
}

func (l *Loader) LoadedCount() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.loadedChunks)
}

// Invalidate drops the loaded set so every chunk becomes a candidate again.
func (l *Loader) Invalidate() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.loadedChunks = make(map[string]struct{})
}

// ViewportChanged schedules a load pass after a quiet period. Each call
// cancels and reschedules the timer, so continuous panning only triggers one
// pass once the viewport settles.
func (l *Loader) ViewportChanged(ctx context.Context, vp Viewport) {
	l.debounceLock.Lock()
	defer l.debounceLock.Unlock()
	if l.debounceTimer != nil {
		l.debounceTimer.Stop()
	}
	l.debounceTimer = time.AfterFunc(viewportDebounce, func() {
		if err := l.LoadVisible(ctx, vp); err != nil {
			log.Error("loader.LoadVisible", "err", err)
		}
	})
}

// LoadVisible runs one full load pass for the viewport. Only one pass runs
// at a time; overlapping calls return immediately.
func (l *Loader) LoadVisible(ctx context.Context, vp Viewport) error {
	l.lock.Lock()
	if l.inFlight {
		l.lock.Unlock()
		return nil
	}
	l.inFlight = true
	first := l.initialLoad
	l.lock.Unlock()

	defer func() {
		l.lock.Lock()
		l.inFlight = false
		l.initialLoad = false
		l.lock.Unlock()
	}()

	chunks := l.candidateChunks(vp, first)
	if len(chunks) == 0 {
		return nil
	}

	concurrency := subsequentConcurrency
	delay := subsequentBatchDelay
	if first {
		concurrency = initialConcurrency
		delay = initialBatchDelay
	}
	if l.batchDelayOverride > 0 {
		delay = l.batchDelayOverride
	}

	var wg sync.WaitGroup
	p, err := ants.NewPoolWithFunc(concurrency, func(i interface{}) {
		defer wg.Done()
		l.loadChunk(ctx, i.(schema.Chunk))
	})
	if err != nil {
		return err
	}
	defer p.Release()

	for i := 0; i < len(chunks); i += concurrency {
		end := min(i+concurrency, len(chunks))
		for _, ck := range chunks[i:end] {
			wg.Add(1)
			_ = p.Invoke(ck)
		}
		wg.Wait()

		if end < len(chunks) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	metricLoadedChunks(l.LoadedCount())
	return nil
}

// candidateChunks partitions the buffered fetch region into chunks, drops
// the already loaded or in-flight ones and sorts the rest center-out. The
// region is clipped to the canvas before partitioning, so every generated
// chunk lies fully inside.
func (l *Loader) candidateChunks(vp Viewport, first bool) []schema.Chunk {
	buffer := subsequentLoadBuffer
	if first {
		buffer = initialLoadBuffer
	}

	startX := clampInt(vp.X-buffer, 0, schema.CanvasWidth-1)
	startY := clampInt(vp.Y-buffer, 0, schema.CanvasHeight-1)
	endX := min(schema.CanvasWidth-1, vp.X+vp.Size+buffer)
	endY := min(schema.CanvasHeight-1, vp.Y+vp.Size+buffer)

	centerX := vp.CenterX()
	centerY := vp.CenterY()

	l.lock.Lock()
	defer l.lock.Unlock()

	chunks := make([]schema.Chunk, 0)
	for y := startY; y < endY; y += schema.ChunkSize {
		for x := startX; x < endX; x += schema.ChunkSize {
			ck := schema.Chunk{
				X0: x,
				Y0: y,
				X1: min(x+schema.ChunkSize-1, endX),
				Y1: min(y+schema.ChunkSize-1, endY),
			}
			key := ck.Key()
			if _, ok := l.loadedChunks[key]; ok {
				continue
			}
			if _, ok := l.loadingChunks[key]; ok {
				continue
			}
			ckCenterX := float64(ck.X0) + float64(ck.X1-ck.X0)/2
			ckCenterY := float64(ck.Y0) + float64(ck.Y1-ck.Y0)/2
			ck.Priority = math.Sqrt(math.Pow(ckCenterX-centerX, 2) + math.Pow(ckCenterY-centerY, 2))
			chunks = append(chunks, ck)
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Priority < chunks[j].Priority
	})
	return chunks
}

func (l *Loader) loadChunk(ctx context.Context, ck schema.Chunk) {
	key := ck.Key()
	l.lock.Lock()
	l.loadingChunks[key] = struct{}{}
	l.lock.Unlock()

	defer func() {
		l.lock.Lock()
		delete(l.loadingChunks, key)
		l.lock.Unlock()
	}()

	ids, owners, colors, err := l.reader.ReadRange(ctx, ck.X0, ck.Y0, ck.X1, ck.Y1)
	if err != nil {
		log.Warn("load chunk", "chunk", key, "err", err)
		return
	}

	for i, id := range ids {
		x, y, err := FromID(id)
		if err != nil {
			log.Warn("range result id out of canvas", "id", id)
			continue
		}
		cell := schema.Cell{X: x, Y: y, Minted: true}
		if i < len(owners) {
			cell.Owner = owners[i]
		}
		if i < len(colors) {
			cell.Color = colors[i]
		}
		l.canvas.MergeCell(cell)
	}

	l.lock.Lock()
	l.loadedChunks[key] = struct{}{}
	l.lock.Unlock()
}
