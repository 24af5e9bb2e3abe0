// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// DoctorLister lists the doctor directory.
type DoctorLister interface {
	List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error)
}

// Recomputer rebuilds one doctor's rating.
type Recomputer interface {
	Recompute(ctx context.Context, doctorID string) (models.Rating, error)
}

// RatingReconciler recomputes every doctor's rating. It repairs aggregates
// left behind when the recompute after a review failed.
type RatingReconciler struct {
	doctors DoctorLister
	ratings Recomputer
	logger  *zap.Logger
	timeout time.Duration
}

func NewRatingReconciler(doctors DoctorLister, ratings Recomputer, logger *zap.Logger) *RatingReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingReconciler{doctors: doctors, ratings: ratings, logger: logger, timeout: 10 * time.Minute}
}

// RunOnce recomputes all doctors and returns how many failed. One doctor's
// failure does not stop the others.
func (r *RatingReconciler) RunOnce(ctx context.Context) (failed int, err error) {
	doctors, err := r.doctors.List(ctx, store.DoctorFilter{})
	if err != nil {
		return 0, fmt.Errorf("list doctors: %w", err)
	}
	for _, d := range doctors {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if _, err := r.ratings.Recompute(ctx, d.ID); err != nil {
			failed++
			r.logger.Error("rating reconciliation failed", zap.String("doctor_id", d.ID), zap.Error(err))
		}
	}
	r.logger.Info("rating reconciliation finished",
		zap.Int("doctors", len(doctors)),
		zap.Int("failed", failed))
	return failed, nil
}

// Start schedules RunOnce on spec (standard five field cron syntax) and
// returns the running scheduler. Stop it on shutdown.
func (r *RatingReconciler) Start(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.logger.Info("running scheduled rating reconciliation")
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("scheduled rating reconciliation aborted", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
