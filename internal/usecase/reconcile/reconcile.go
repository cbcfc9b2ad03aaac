// Package reconcile re-derives series statuses from the calendar and
// persists any that changed.
package reconcile

import (
	"context"
	"time"

	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/pkg/dateparse"

	"go.uber.org/zap"
)

// Observer is told how many series each pass rewrote.
type Observer interface {
	ObserveReconcile(changed int)
}

type Reconciler struct {
	uow      uow.UnitOfWork
	interval time.Duration
	log      *zap.Logger
	obs      Observer
	now      func() time.Time
}

type Option func(*Reconciler)

func WithLogger(l *zap.Logger) Option       { return func(r *Reconciler) { r.log = l } }
func WithObserver(o Observer) Option        { return func(r *Reconciler) { r.obs = o } }
func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func New(tx uow.UnitOfWork, interval time.Duration, opts ...Option) *Reconciler {
	r := &Reconciler{uow: tx, interval: interval, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunOnce derives every series' status for today and commits the ones
// that moved in a single write. It returns how many changed; zero means
// nothing was written.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	today := dateparse.Day(r.now())
	changed := 0
	err := r.uow.WithinTx(ctx, "reconcile", func(d *uow.Dataset) error {
		changed = 0
		for i := range d.Series {
			next := series.DeriveStatus(d.Series[i], today)
			if next == d.Series[i].Status {
				continue
			}
			r.log.Info("series status changed",
				zap.Int64("series_id", d.Series[i].ID),
				zap.String("from", string(d.Series[i].Status)),
				zap.String("to", string(next)))
			d.Series[i].Status = next
			changed++
		}
		if changed == 0 {
			return uow.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if r.obs != nil {
		r.obs.ObserveReconcile(changed)
	}
	return changed, nil
}

// Start runs a pass immediately and then once per interval until ctx is
// cancelled. Errors are logged; the loop keeps going.
func (r *Reconciler) Start(ctx context.Context) {
	r.log.Info("reconciler started", zap.Duration("interval", r.interval))
	r.pass(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	n, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error("reconcile failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.log.Info("reconcile committed", zap.Int("changed", n))
	}
}
