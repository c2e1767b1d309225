package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/metrics"
)

const pendingScanLimit = 200

// PendingMonitor periodically reports purchase requests that have waited for
// an admin decision longer than staleAfter. It only observes; decisions stay
// with the admins.
type PendingMonitor struct {
	requests   repository.PurchaseRequestRepository
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	log        *zerolog.Logger
}

func NewPendingMonitor(requests repository.PurchaseRequestRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PendingMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	l := logger.With().Str("component", "PendingMonitor").Logger()
	return &PendingMonitor{
		requests:   requests,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        &l,
	}
}

func (w *PendingMonitor) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting pending monitor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pending monitor")
			return ctx.Err()
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan runs one pass and returns the number of stale requests seen.
func (w *PendingMonitor) Scan(ctx context.Context) int {
	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := w.now().Add(-w.staleAfter)
	stale, err := w.requests.ListPendingOlderThan(scanCtx, repository.NoTX, cutoff, pendingScanLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("pending monitor: list stale requests failed")
		return 0
	}

	metrics.SetStalePending(len(stale))
	for _, pr := range stale {
		w.log.Warn().
			Str("request_id", pr.ID).
			Str("user_id", pr.UserID).
			Str("credit_type", string(pr.CreditType)).
			Int64("credits", pr.CreditsRequested).
			Dur("age", w.now().Sub(pr.CreatedAt)).
			Msg("purchase request pending past threshold")
	}
	return len(stale)
}
