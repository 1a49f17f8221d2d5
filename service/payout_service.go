package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/settlement"
	"github.com/vocdoni/qf-tally/storage"
)

// PayoutService settles the payouts queued by claims.
//
// A payout is reserved before its transfer and the reservation is only
// released when the transfer was certainly not submitted. Payouts whose
// transfer failed after submission stay reserved and are never retried
// automatically.
type PayoutService struct {
	stg        *storage.Storage
	settlement settlement.Settlement
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPayoutService returns a payout service polling the queue every interval.
func NewPayoutService(stg *storage.Storage, s settlement.Settlement, interval time.Duration) *PayoutService {
	return &PayoutService{
		stg:        stg,
		settlement: s,
		interval:   interval,
	}
}

// Start begins draining the payout queue in the background.
func (ps *PayoutService) Start(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if ps.interval <= 0 {
		return fmt.Errorf("payout interval must be positive")
	}
	ctx, ps.cancel = context.WithCancel(ctx)
	ps.done = make(chan struct{})
	go ps.run(ctx, ps.done)
	return nil
}

// Stop halts the service and waits for the running payout, if any.
func (ps *PayoutService) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.cancel == nil {
		return
	}
	ps.cancel()
	<-ps.done
	ps.cancel = nil
}

func (ps *PayoutService) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()
	log.Infow("payout service started", "interval", ps.interval.String())
	for {
		if _, err := ps.ProcessPayouts(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("payout processing interrupted", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			log.Infow("payout service stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessPayouts settles pending payouts until the queue is empty or a
// transfer fails. It returns the number of settled payouts.
func (ps *PayoutService) ProcessPayouts(ctx context.Context) (int, error) {
	settled := 0
	defer func() {
		if n, err := ps.stg.CountPendingPayouts(); err == nil {
			pendingPayouts.Set(float64(n))
		}
	}()
	for ctx.Err() == nil {
		p, key, err := ps.stg.NextPayout()
		if errors.Is(err, storage.ErrNoMoreElements) {
			return settled, nil
		}
		if err != nil {
			return settled, fmt.Errorf("next payout: %w", err)
		}

		txRef := ""
		if p.Amount.MathBigInt().Sign() > 0 {
			txRef, err = ps.settlement.Transfer(ctx, p.To, p.Amount.MathBigInt())
			if err != nil {
				if errors.Is(err, settlement.ErrNotSubmitted) {
					payoutsFailed.WithLabelValues("true").Inc()
					if rerr := ps.stg.ReleasePayout(key); rerr != nil {
						log.Errorw(rerr, "failed to release payout reservation")
					}
					return settled, fmt.Errorf("payout %s/%d: %w", p.RoundID, p.Index, err)
				}
				payoutsFailed.WithLabelValues("false").Inc()
				log.Errorw(err, fmt.Sprintf("payout %s/%d failed after submission, kept reserved", p.RoundID, p.Index))
				continue
			}
		}
		if err := ps.stg.MarkPayoutDone(key, txRef); err != nil {
			return settled, fmt.Errorf("mark payout done: %w", err)
		}
		settled++
		payoutsSent.Inc()
		log.Infow("payout settled", "round", p.RoundID.String(), "index", p.Index,
			"to", p.To.Hex(), "amount", p.Amount.String(), "txRef", txRef)
	}
	return settled, ctx.Err()
}
