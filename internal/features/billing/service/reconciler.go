package service

import (
	"context"
	"sync"
	"time"

	"vpn-bot-backend/internal/common/logger"
	"vpn-bot-backend/internal/features/billing/repository"
)

const reconcileCallTimeout = 15 * time.Second

// Reconciler periodically drives every non-terminal payment through
// BillingService.Reconcile. A failed reconciliation is logged and retried on
// the next tick; nothing here is fatal.
type Reconciler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	billing  BillingService
	repo     repository.PaymentRepository
	interval time.Duration
	wg       sync.WaitGroup
}

func NewReconciler(billing BillingService, repo repository.PaymentRepository, interval time.Duration) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		ctx:      ctx,
		cancel:   cancel,
		billing:  billing,
		repo:     repo,
		interval: interval,
	}
}

func (r *Reconciler) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		logger.Info().Dur("interval", r.interval).Msg("payment reconciler started")
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reconciler) sweep() {
	payments, err := r.repo.ListUnsettled(r.ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconciler: list unsettled payments")
		return
	}
	for _, payment := range payments {
		ctx, cancel := context.WithTimeout(r.ctx, reconcileCallTimeout)
		result, err := r.billing.Reconcile(ctx, payment.ID)
		cancel()
		if err != nil {
			logger.Warn().
				Err(err).
				Str("payment_id", payment.ID).
				Msg("reconciler: will retry on next tick")
			continue
		}
		if result.Credited {
			logger.Info().
				Str("payment_id", payment.ID).
				Int64("user_id", payment.UserID).
				Msg("reconciler: payment credited")
		}
	}
}
