package pxgated

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	"github.com/moonpixels/pxgated/indexer"
	"github.com/moonpixels/pxgated/pxnft"
	"github.com/moonpixels/pxgated/schema"
)

const (
	ModePaint    = "paint"
	ModeDelegate = "delegate"
	ModeRevoke   = "revoke"
)

type PxGated struct {
	cfg *schema.Config

	store  *Store
	wdb    *Wdb
	chain  *pxnft.Client
	caller ContractCaller
	idx    *indexer.Client

	canvas  *Canvas
	loader  *Loader
	tracker *Tracker
	notify  *NotifyCenter

	vpLock sync.Mutex
	vp     Viewport

	modeLock sync.Mutex
	mode     string

	feeLock   sync.Mutex
	baseFee   *big.Int
	feeExempt bool

	engine    *gin.Engine
	scheduler *gocron.Scheduler

	stop context.CancelFunc
}

func New(cfg *schema.Config) *PxGated {
	store, err := NewBoltStore(cfg.BoltDirPath)
	if err != nil {
		panic(err)
	}
	wdb := NewSqliteDb(cfg.SqliteDir)
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}
	chain, err := pxnft.NewClient(cfg.RpcUrl, cfg.WsUrl, cfg.ContractAddr, cfg.PrvKeyHex)
	if err != nil {
		panic(err)
	}

	var idx *indexer.Client
	if cfg.IndexerUrl != "" {
		idx, err = indexer.New(cfg.IndexerUrl, cfg.IndexerApiKey, cfg.Collection)
		if err != nil {
			panic(err)
		}
	}

	canvas := NewCanvas()
	notify := NewNotifyCenter()
	tracker := NewTracker(canvas, notify, chain, wdb)
	loader := NewLoader(canvas, chain)

	s := &PxGated{
		cfg:       cfg,
		store:     store,
		wdb:       wdb,
		chain:     chain,
		caller:    chain,
		idx:       idx,
		canvas:    canvas,
		loader:    loader,
		tracker:   tracker,
		notify:    notify,
		vp:        NewViewport(),
		mode:      ModePaint,
		engine:    gin.Default(),
		scheduler: gocron.NewScheduler(time.UTC),
	}
	tracker.OnModeReset(func(kind string) {
		s.SetMode(ModePaint)
	})

	s.restoreSnapshot()
	return s
}

// restoreSnapshot reloads the persisted canvas mirror so a restart does not
// re-fetch everything from chain.
func (s *PxGated) restoreSnapshot() {
	cells, err := s.store.LoadAllCells()
	if err != nil {
		log.Error("load cell snapshot", "err", err)
		return
	}
	for _, cell := range cells {
		s.canvas.MergeCell(cell)
	}
	keys, err := s.store.LoadLoadedChunks()
	if err != nil {
		log.Error("load chunk keys", "err", err)
		return
	}
	s.loader.SeedLoaded(keys)

	if n, err := s.store.LoadTotalMinted(); err == nil {
		s.canvas.SetTotalMinted(n)
	}
	log.Info("snapshot restored", "cells", len(cells), "chunks", len(keys))
}

func (s *PxGated) Run(port string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.tracker.BindContext(ctx)

	if s.cfg.HealthUrl != "" {
		if err := WaitUntilUp(ctx, s.cfg.HealthUrl, 5); err != nil {
			log.Warn("backend still down after retries", "url", s.cfg.HealthUrl, "err", err)
		}
	}

	go s.runAPI(port)
	s.runJobs()
	go s.runEvents(ctx)

	go s.loader.ViewportChanged(ctx, s.CurrentViewport())
}

func (s *PxGated) Close() {
	if s.stop != nil {
		s.stop()
	}
	s.scheduler.Stop()
	s.flushSnapshot()
	if err := s.store.Close(); err != nil {
		log.Error("close bolt store", "err", err)
	}
	s.wdb.Close()
	s.chain.Close()
	log.Info("pxgated closed")
}

func (s *PxGated) CurrentViewport() Viewport {
	s.vpLock.Lock()
	defer s.vpLock.Unlock()
	return s.vp
}

// applyViewport swaps in the new viewport and kicks the debounced loader.
func (s *PxGated) applyViewport(ctx context.Context, vp Viewport) Viewport {
	s.vpLock.Lock()
	s.vp = vp
	s.vpLock.Unlock()
	s.loader.ViewportChanged(ctx, vp)
	return vp
}

func (s *PxGated) ZoomIn(ctx context.Context, anchorX, anchorY float64) Viewport {
	return s.applyViewport(ctx, s.CurrentViewport().ZoomIn(anchorX, anchorY))
}

func (s *PxGated) ZoomOut(ctx context.Context, anchorX, anchorY float64) Viewport {
	return s.applyViewport(ctx, s.CurrentViewport().ZoomOut(anchorX, anchorY))
}

func (s *PxGated) Pan(ctx context.Context, deltaXPx, deltaYPx int) Viewport {
	return s.applyViewport(ctx, s.CurrentViewport().Pan(deltaXPx, deltaYPx))
}

func (s *PxGated) GoTo(ctx context.Context, x, y int) (Viewport, error) {
	nv, err := s.CurrentViewport().GoTo(x, y)
	if err != nil {
		return s.CurrentViewport(), err
	}
	return s.applyViewport(ctx, nv), nil
}

func (s *PxGated) Mode() string {
	s.modeLock.Lock()
	defer s.modeLock.Unlock()
	return s.mode
}

func (s *PxGated) SetMode(mode string) {
	s.modeLock.Lock()
	s.mode = mode
	s.modeLock.Unlock()
}

func (s *PxGated) flushSnapshot() {
	if err := s.store.SaveCells(s.canvas.Snapshot()); err != nil {
		log.Error("save cell snapshot", "err", err)
		return
	}
	if err := s.store.SaveLoadedChunks(s.loader.LoadedKeys()); err != nil {
		log.Error("save chunk keys", "err", err)
		return
	}
	if err := s.store.SaveTotalMinted(s.canvas.TotalMinted()); err != nil {
		log.Error("save total minted", "err", err)
	}
}
