package booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

const defaultRatingAttempts = 3

// RatingAggregator recomputes a doctor's rating from scratch.
type RatingAggregator struct {
	appointments AppointmentStore
	doctors      DoctorStore
	logger       *zap.Logger
	metrics      *metrics.BookingMetrics
	attempts     int
}

// NewRatingAggregator creates a RatingAggregator. logger and m may be nil.
func NewRatingAggregator(appointments AppointmentStore, doctors DoctorStore, logger *zap.Logger, m *metrics.BookingMetrics) *RatingAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingAggregator{
		appointments: appointments,
		doctors:      doctors,
		logger:       logger,
		metrics:      m,
		attempts:     defaultRatingAttempts,
	}
}

// ComputeRating averages the first review of every reviewed appointment,
// rounded to one decimal place.
func ComputeRating(appointments []models.Appointment) models.Rating {
	var sum, count int
	for _, a := range appointments {
		if !a.HasReview() {
			continue
		}
		sum += a.Reviews[0].Rating
		count++
	}
	if count == 0 {
		return models.Rating{}
	}
	mean := float64(sum) / float64(count)
	return models.Rating{Average: math.Round(mean*10) / 10, Count: count}
}

// Recompute rebuilds and stores the doctor's rating. An unknown doctor is a
// no-op. The write is a compare-and-swap on the doctor's version and is
// retried when a concurrent recompute got there first.
func (r *RatingAggregator) Recompute(ctx context.Context, doctorID string) (models.Rating, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		doctor, err := r.doctors.GetByID(ctx, doctorID)
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Debug("rating recompute skipped, doctor not found", zap.String("doctor_id", doctorID))
			r.metrics.ObserveRatingRecompute("skipped")
			return models.Rating{}, nil
		}
		if err != nil {
			r.metrics.ObserveRatingRecompute("error")
			return models.Rating{}, fmt.Errorf("load doctor %s: %w", doctorID, err)
		}

		reviewed, err := r.appointments.ListReviewed(ctx, doctorID)
		if err != nil {
			r.metrics.ObserveRatingRecompute("error")
			return models.Rating{}, fmt.Errorf("list reviewed appointments for %s: %w", doctorID, err)
		}
		rating := ComputeRating(reviewed)
		if rating == doctor.Rating {
			r.metrics.ObserveRatingRecompute("unchanged")
			return rating, nil
		}

		err = r.doctors.UpdateRating(ctx, doctorID, rating, doctor.Version)
		if errors.Is(err, store.ErrStale) {
			r.logger.Debug("rating write lost a race, retrying",
				zap.String("doctor_id", doctorID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			r.metrics.ObserveRatingRecompute("error")
			return models.Rating{}, fmt.Errorf("store rating for %s: %w", doctorID, err)
		}
		r.metrics.ObserveRatingRecompute("updated")
		r.logger.Info("doctor rating recomputed",
			zap.String("doctor_id", doctorID),
			zap.Float64("average", rating.Average),
			zap.Int("count", rating.Count))
		return rating, nil
	}
	r.metrics.ObserveRatingRecompute("error")
	return models.Rating{}, fmt.Errorf("store rating for %s: %w after %d attempts", doctorID, store.ErrStale, r.attempts)
}
