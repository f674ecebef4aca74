package pxgated

import (
	"context"
	"errors"
	"time"

	"github.com/moonpixels/pxgated/pxnft"
	"github.com/moonpixels/pxgated/schema"
)

const eventResubscribeDelay = 3 * time.Second

// runEvents keeps the ws subscriptions alive and feeds contract events into
// the canvas and the tracker. Events are the fast confirmation path; the
// tracker's timer fallback covers the gaps.
func (s *PxGated) runEvents(ctx context.Context) {
	for {
		err := s.watchOnce(ctx)
		if errors.Is(err, pxnft.ErrNoWsEndpoint) {
			log.Warn("no ws endpoint configured, relying on fallback reconciliation")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("event subscription dropped", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(eventResubscribeDelay):
		}
	}
}

func (s *PxGated) watchOnce(ctx context.Context) error {
	mints := make(chan pxnft.MintEvent, 64)
	colors := make(chan pxnft.ColorEvent, 64)

	mintSub, err := s.chain.WatchMints(ctx, mints)
	if err != nil {
		return err
	}
	defer mintSub.Unsubscribe()

	colorSub, err := s.chain.WatchColorUpdates(ctx, colors)
	if err != nil {
		return err
	}
	defer colorSub.Unsubscribe()

	log.Info("event subscriptions established")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-mintSub.Err():
			return err
		case err := <-colorSub.Err():
			return err
		case ev := <-mints:
			s.onMint(ctx, ev)
		case ev := <-colors:
			s.onColorUpdate(ev)
		}
	}
}

// onMint applies a freshly minted cell. The Transfer log carries no color, so
// it is re-read before the authoritative apply.
func (s *PxGated) onMint(ctx context.Context, ev pxnft.MintEvent) {
	x, y, err := FromID(ev.TokenId)
	if err != nil {
		log.Warn("mint event outside canvas", "tokenId", ev.TokenId)
		return
	}
	color, err := s.chain.GetColor(ctx, x, y)
	if err != nil {
		log.Error("read color for minted pixel", "x", x, "y", y, "err", err)
		color = schema.DefaultBackground
	}
	s.canvas.ApplyAuthoritative(x, y, color, ev.Owner)
	s.canvas.IncrTotalMinted()
	metricTotalMinted(s.canvas.TotalMinted())
	s.tracker.CellConfirmed(schema.CellKey(x, y))
	log.Debug("mint event applied", "x", x, "y", y, "owner", ev.Owner)
}

func (s *PxGated) onColorUpdate(ev pxnft.ColorEvent) {
	if _, err := ToID(ev.X, ev.Y); err != nil {
		log.Warn("color event outside canvas", "x", ev.X, "y", ev.Y)
		return
	}
	s.canvas.ApplyAuthoritative(ev.X, ev.Y, ev.Color, ev.Owner)
	s.tracker.CellConfirmed(schema.CellKey(ev.X, ev.Y))
	log.Debug("color event applied", "x", ev.X, "y", ev.Y)
}
