// Package booking implements the appointment lifecycle: slot checks, booking,
// status transitions, cancellation policy and review aggregation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

const (
	maxReasonLen      = 500
	maxSymptomsLen    = 1000
	maxHistoryLen     = 2000
	maxMedicationsLen = 1000
	maxAllergiesLen   = 500
	maxNotesLen       = 2000
	maxCommentLen     = 500

	defaultDuration = 30

	// DefaultCancellationCutoff is how long before the appointment patients
	// and doctors may still cancel.
	DefaultCancellationCutoff = 24 * time.Hour
)

var (
	bookingTracer = otel.Tracer("healthcare.internal.booking")
	validate      = validator.New()
)

// BookingRequest carries everything Book needs.
type BookingRequest struct {
	PatientID          string                  `validate:"required"`
	DoctorID           string                  `validate:"required"`
	Date               string                  `validate:"required"`
	Time               string                  `validate:"required"`
	Duration           int                     `validate:"omitempty,min=15,max=120"`
	ConsultationType   models.ConsultationType `validate:"omitempty,oneof=in-person video phone"`
	Reason             string                  `validate:"required,max=500"`
	Symptoms           string                  `validate:"max=1000"`
	MedicalHistory     string                  `validate:"max=2000"`
	CurrentMedications string                  `validate:"max=1000"`
	Allergies          string                  `validate:"max=500"`
}

// Service is the appointment lifecycle manager.
type Service struct {
	appointments AppointmentStore
	doctors      DoctorStore
	slots        *SlotChecker
	ratings      *RatingAggregator
	clock        Clock
	location     *time.Location
	cutoff       time.Duration
	// updateCancelCutoff applies the cancellation cutoff to cancels that
	// arrive through Update as well as through Cancel.
	updateCancelCutoff bool
	logger             *zap.Logger
	metrics            *metrics.BookingMetrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the timezone appointment dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithCancellationCutoff overrides the 24 hour cutoff.
func WithCancellationCutoff(d time.Duration) Option {
	return func(s *Service) { s.cutoff = d }
}

// WithUpdateCancelCutoff controls whether Update's cancel path enforces the cutoff.
func WithUpdateCancelCutoff(enforce bool) Option {
	return func(s *Service) { s.updateCancelCutoff = enforce }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the lifecycle manager.
func NewService(appointments AppointmentStore, doctors DoctorStore, opts ...Option) *Service {
	if appointments == nil || doctors == nil {
		panic("booking: appointment and doctor stores required")
	}
	s := &Service{
		appointments:       appointments,
		doctors:            doctors,
		clock:              SystemClock{},
		location:           time.UTC,
		cutoff:             DefaultCancellationCutoff,
		updateCancelCutoff: true,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slots = NewSlotChecker(appointments)
	s.ratings = NewRatingAggregator(appointments, doctors, s.logger, s.metrics)
	return s
}

// Ratings exposes the aggregator used after reviews.
func (s *Service) Ratings() *RatingAggregator { return s.ratings }

// IsSlotAvailable reports whether the slot is free.
func (s *Service) IsSlotAvailable(ctx context.Context, doctorID, date, clock string) (bool, error) {
	return s.slots.IsSlotAvailable(ctx, doctorID, date, clock)
}

// Book creates a scheduled appointment after checking the doctor, the time
// and the slot.
func (s *Service) Book(ctx context.Context, req BookingRequest) (_ *models.Appointment, err error) {
	ctx, span, done := s.begin(ctx, "book",
		attribute.String("booking.doctor_id", req.DoctorID),
		attribute.String("booking.patient_id", req.PatientID))
	defer func() { done(err) }()

	if err := validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: formatValidation(err)}
	}
	scheduledAt, err := models.ParseSlot(req.Date, req.Time, s.location)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: err.Error()}
	}

	doctor, err := s.doctors.GetByID(ctx, req.DoctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, "doctor %s not found", req.DoctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.IsActive {
		return nil, newError(KindNotFound, "doctor %s is not accepting appointments", req.DoctorID)
	}

	if !scheduledAt.After(s.clock.Now()) {
		return nil, newError(KindInvalidInput, "appointment time must be in the future")
	}

	available, err := s.slots.IsSlotAvailable(ctx, req.DoctorID, req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, newError(KindConflict, "slot %s %s is already booked", req.Date, req.Time)
	}

	duration := req.Duration
	if duration == 0 {
		duration = defaultDuration
	}
	consultation := req.ConsultationType
	if consultation == "" {
		consultation = models.ConsultationInPerson
	}
	a := &models.Appointment{
		PatientID:          req.PatientID,
		DoctorID:           req.DoctorID,
		AppointmentDate:    req.Date,
		AppointmentTime:    req.Time,
		Duration:           duration,
		Status:             models.StatusScheduled,
		ConsultationType:   consultation,
		Reason:             req.Reason,
		Symptoms:           req.Symptoms,
		MedicalHistory:     req.MedicalHistory,
		CurrentMedications: req.CurrentMedications,
		Allergies:          req.Allergies,
		Payment: models.Payment{
			Amount: doctor.ConsultationFee,
			Status: models.PaymentPending,
		},
		Reviews: []models.Review{},
	}
	a.SyncSlotKey()

	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(KindConflict, "slot %s %s is already booked", req.Date, req.Time)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	span.SetAttributes(attribute.String("booking.appointment_id", a.ID))
	s.logger.Info("appointment booked",
		zap.String("appointment_id", a.ID),
		zap.String("doctor_id", a.DoctorID),
		zap.String("patient_id", a.PatientID),
		zap.String("date", a.AppointmentDate),
		zap.String("time", a.AppointmentTime))
	return a, nil
}

// Get returns an appointment the actor may view.
func (s *Service) Get(ctx context.Context, id string, actor Actor) (*models.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanPerform(actor, a, ActionView) {
		return nil, newError(KindForbidden, "not authorized to view this appointment")
	}
	return a, nil
}

// ListForActor returns the patient's or doctor's own appointments, or all of
// them for an admin.
func (s *Service) ListForActor(ctx context.Context, actor Actor, status models.AppointmentStatus) ([]models.Appointment, error) {
	if status != "" && !status.Valid() {
		return nil, newError(KindInvalidInput, "unknown status %q", status)
	}
	filter := store.AppointmentFilter{Status: status}
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
	case models.RoleDoctor:
		filter.DoctorID = actor.UserID
	case models.RoleAdmin:
	default:
		return nil, newError(KindForbidden, "role %q may not list appointments", actor.Role)
	}
	list, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// Update applies typed intents from the patient or the doctor. Every intent
// is authorized and validated before anything is written.
func (s *Service) Update(ctx context.Context, id string, actor Actor, intents ...UpdateIntent) (_ *models.Appointment, err error) {
	ctx, _, done := s.begin(ctx, "update", attribute.String("booking.appointment_id", id))
	defer func() { done(err) }()

	if len(intents) == 0 {
		return nil, newError(KindInvalidInput, "nothing to update")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanPerform(actor, a, ActionUpdate) {
		return nil, newError(KindForbidden, "only the patient or the doctor may update this appointment")
	}
	for _, in := range intents {
		if !CanPerform(actor, a, in.action()) {
			return nil, newError(KindForbidden, "not allowed to %s this appointment", in.action())
		}
	}

	original := a.Status
	next := *a
	for _, in := range intents {
		if err := s.applyIntent(&next, original, actor, in); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info("appointment updated",
		zap.String("appointment_id", next.ID),
		zap.String("actor_id", actor.UserID),
		zap.String("status", string(next.Status)))
	return &next, nil
}

func (s *Service) applyIntent(a *models.Appointment, original models.AppointmentStatus, actor Actor, in UpdateIntent) error {
	switch in := in.(type) {
	case ConfirmIntent:
		if a.Status != models.StatusScheduled {
			return newError(KindInvalidState, "cannot confirm a %s appointment", a.Status)
		}
		a.Status = models.StatusConfirmed
	case CompleteIntent:
		if !a.IsActive() {
			return newError(KindInvalidState, "cannot complete a %s appointment", a.Status)
		}
		a.Status = models.StatusCompleted
	case NoShowIntent:
		if !a.IsActive() {
			return newError(KindInvalidState, "cannot mark a %s appointment as no-show", a.Status)
		}
		a.Status = models.StatusNoShow
	case CancelIntent:
		return s.applyCancel(a, actor, in.Reason, s.updateCancelCutoff)
	case NotesIntent:
		if isTerminal(original) {
			return newError(KindInvalidState, "a %s appointment is read-only", original)
		}
		if err := in.validate(); err != nil {
			return err
		}
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		if in.Prescription != nil {
			a.Prescription = *in.Prescription
		}
	case ClinicalEditIntent:
		if original != models.StatusScheduled {
			return newError(KindInvalidState, "clinical details can only change while the appointment is scheduled")
		}
		if err := in.validate(); err != nil {
			return err
		}
		in.apply(a)
	default:
		return newError(KindInvalidInput, "unsupported update %T", in)
	}
	return nil
}

// Cancel cancels an active appointment. Patients and doctors must do so
// before the cutoff; admins may cancel at any time.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor, reason string) (_ *models.Appointment, err error) {
	ctx, _, done := s.begin(ctx, "cancel", attribute.String("booking.appointment_id", id))
	defer func() { done(err) }()

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanPerform(actor, a, ActionCancel) {
		return nil, newError(KindForbidden, "not allowed to cancel this appointment")
	}
	next := *a
	if err := s.applyCancel(&next, actor, reason, true); err != nil {
		return nil, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", next.ID),
		zap.String("cancelled_by", string(next.CancelledBy)))
	return &next, nil
}

func (s *Service) applyCancel(a *models.Appointment, actor Actor, reason string, enforceCutoff bool) error {
	if utf8.RuneCountInString(reason) > maxReasonLen {
		return newError(KindInvalidInput, "cancellation reason exceeds %d characters", maxReasonLen)
	}
	if !a.IsActive() {
		return newError(KindInvalidState, "cannot cancel a %s appointment", a.Status)
	}
	by := cancelledBy(actor, a)
	now := s.clock.Now()
	if enforceCutoff && by != models.RoleAdmin {
		scheduledAt, err := a.ScheduledAt(s.location)
		if err != nil {
			return fmt.Errorf("appointment %s has an unreadable schedule: %w", a.ID, err)
		}
		if scheduledAt.Sub(now) <= s.cutoff {
			return newError(KindPolicyViolation, "appointments cannot be cancelled within %s of the start time", formatCutoff(s.cutoff))
		}
	}
	a.Status = models.StatusCancelled
	a.CancellationReason = reason
	a.CancelledAt = &now
	a.CancelledBy = by
	return nil
}

// AddReview stores the patient's single review of a completed appointment
// and recomputes the doctor's rating.
func (s *Service) AddReview(ctx context.Context, id, patientID string, rating int, comment string) (_ *models.Appointment, err error) {
	ctx, _, done := s.begin(ctx, "review", attribute.String("booking.appointment_id", id))
	defer func() { done(err) }()

	if rating < 1 || rating > 5 {
		return nil, newError(KindInvalidInput, "rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, newError(KindInvalidInput, "comment exceeds %d characters", maxCommentLen)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanPerform(Actor{UserID: patientID, Role: models.RolePatient}, a, ActionReview) {
		return nil, newError(KindForbidden, "only the patient can review this appointment")
	}
	if a.Status != models.StatusCompleted {
		return nil, newError(KindInvalidState, "only completed appointments can be reviewed")
	}
	if a.HasReview() {
		return nil, newError(KindInvalidState, "appointment has already been reviewed")
	}

	next := *a
	next.Reviews = []models.Review{{
		User:    patientID,
		Rating:  rating,
		Comment: comment,
		Date:    s.clock.Now(),
	}}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	if _, err := s.ratings.Recompute(ctx, next.DoctorID); err != nil {
		// the review is stored; the reconciliation job repairs the aggregate
		s.logger.Warn("rating recompute failed after review",
			zap.String("doctor_id", next.DoctorID),
			zap.Error(err))
	}
	return &next, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, "appointment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

func (s *Service) save(ctx context.Context, a *models.Appointment) error {
	a.SyncSlotKey()
	err := s.appointments.Update(ctx, a)
	switch {
	case errors.Is(err, store.ErrStale):
		return newError(KindConflict, "appointment %s was changed by another request", a.ID)
	case errors.Is(err, store.ErrDuplicate):
		return newError(KindConflict, "slot %s %s is already booked", a.AppointmentDate, a.AppointmentTime)
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, "appointment %s not found", a.ID)
	case err != nil:
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// begin opens a span and returns the callback that closes it and records metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	ctx, span := bookingTracer.Start(ctx, "booking."+op)
	span.SetAttributes(attrs...)
	start := time.Now()
	return ctx, span, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			var be *Error
			if errors.As(err, &be) {
				outcome = string(be.Kind)
			} else {
				s.logger.Error("booking operation failed", zap.String("operation", op), zap.Error(err))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
		span.End()
	}
}

func isTerminal(status models.AppointmentStatus) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled || status == models.StatusNoShow
}

func formatCutoff(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}

func formatValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", e.Field(), e.Tag(), e.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
	}
	return strings.Join(msgs, ", ")
}
