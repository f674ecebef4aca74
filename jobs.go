package pxgated

import (
	"context"
	"math/big"
	"time"
)

const jobReadTimeout = 10 * time.Second

func (s *PxGated) runJobs() {
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.updateTotalMinted)
	s.scheduler.Every(5).Minute().SingletonMode().Do(s.updateBaseFee)
	s.scheduler.Every(5).Seconds().SingletonMode().Do(s.sweepNotifications)
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.flushSnapshot)
	if s.cfg.HealthUrl != "" {
		s.scheduler.Every(1).Minute().SingletonMode().Do(s.probeBackend)
	}

	s.scheduler.StartAsync()
}

func (s *PxGated) updateTotalMinted() {
	ctx, cancel := context.WithTimeout(context.Background(), jobReadTimeout)
	defer cancel()

	n, err := s.chain.TotalMinted(ctx)
	if err != nil {
		log.Error("read total minted", "err", err)
		return
	}
	s.canvas.SetTotalMinted(n)
	metricTotalMinted(n)
	if err := s.store.SaveTotalMinted(n); err != nil {
		log.Error("save total minted", "err", err)
	}
}

// updateBaseFee keeps a displayable fee quote and the sender's exemption
// status fresh for the fee endpoint.
func (s *PxGated) updateBaseFee() {
	ctx, cancel := context.WithTimeout(context.Background(), jobReadTimeout)
	defer cancel()

	sender := s.caller.SenderAddress()
	if sender == "" {
		return
	}
	fee, exempt, err := s.caller.CalculateUpdateFee(ctx, 0, 0, sender)
	if err != nil {
		log.Error("refresh fee quote", "err", err)
		return
	}
	s.feeLock.Lock()
	s.baseFee = fee
	s.feeExempt = exempt
	s.feeLock.Unlock()
}

// BaseFee returns the cached fee quote in wei and the sender's exemption.
func (s *PxGated) BaseFee() (*big.Int, bool) {
	s.feeLock.Lock()
	defer s.feeLock.Unlock()
	if s.baseFee == nil {
		return big.NewInt(0), s.feeExempt
	}
	return new(big.Int).Set(s.baseFee), s.feeExempt
}

func (s *PxGated) sweepNotifications() {
	if n := s.notify.Sweep(); n > 0 {
		log.Debug("notifications expired", "count", n)
	}
}

func (s *PxGated) probeBackend() {
	if err := CheckOnce(s.cfg.HealthUrl); err != nil {
		log.Warn("backend health probe failed", "url", s.cfg.HealthUrl, "err", err)
	}
}
