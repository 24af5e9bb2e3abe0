package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/booking"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/utils"
)

// AppointmentService is the lifecycle the handler drives.
type AppointmentService interface {
	Book(ctx context.Context, req booking.BookingRequest) (*models.Appointment, error)
	Get(ctx context.Context, id string, actor booking.Actor) (*models.Appointment, error)
	ListForActor(ctx context.Context, actor booking.Actor, status models.AppointmentStatus) ([]models.Appointment, error)
	Update(ctx context.Context, id string, actor booking.Actor, intents ...booking.UpdateIntent) (*models.Appointment, error)
	Cancel(ctx context.Context, id string, actor booking.Actor, reason string) (*models.Appointment, error)
	AddReview(ctx context.Context, id, patientID string, rating int, comment string) (*models.Appointment, error)
	IsSlotAvailable(ctx context.Context, doctorID, date, clock string) (bool, error)
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service AppointmentService
	Logger  *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{Service: svc, Logger: logger}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
	// PatientID is taken from the token for patients; admins and doctors
	// booking on a patient's behalf must set it.
	PatientID          string `json:"patientId"`
	AppointmentDate    string `json:"appointmentDate" validate:"required"`
	AppointmentTime    string `json:"appointmentTime" validate:"required"`
	Duration           int    `json:"duration" validate:"omitempty,min=15,max=120"`
	ConsultationType   string `json:"consultationType" validate:"omitempty,oneof=in-person video phone"`
	Reason             string `json:"reason" validate:"required,max=500"`
	Symptoms           string `json:"symptoms" validate:"max=1000"`
	MedicalHistory     string `json:"medicalHistory" validate:"max=2000"`
	CurrentMedications string `json:"currentMedications" validate:"max=1000"`
	Allergies          string `json:"allergies" validate:"max=500"`
}

// CreateAppointment handles booking a new appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID := req.PatientID
	if actor.Role == models.RolePatient {
		if patientID != "" && patientID != actor.UserID {
			utils.Forbidden(c, "Patients can only book appointments for themselves.")
			return
		}
		patientID = actor.UserID
	}
	if patientID == "" {
		utils.BadRequest(c, "patientId is required")
		return
	}

	appointment, err := h.Service.Book(c.Request.Context(), booking.BookingRequest{
		PatientID:          patientID,
		DoctorID:           req.DoctorID,
		Date:               req.AppointmentDate,
		Time:               req.AppointmentTime,
		Duration:           req.Duration,
		ConsultationType:   models.ConsultationType(req.ConsultationType),
		Reason:             req.Reason,
		Symptoms:           req.Symptoms,
		MedicalHistory:     req.MedicalHistory,
		CurrentMedications: req.CurrentMedications,
		Allergies:          req.Allergies,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetAppointmentsForUser lists the caller's appointments; admins see all.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	list, err := h.Service.ListForActor(c.Request.Context(), actor, models.AppointmentStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", list)
}

// GetAppointmentByID returns one appointment the caller may view.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	appointment, err := h.Service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// AvailabilityQuery is the slot being asked about.
type AvailabilityQuery struct {
	DoctorID string `form:"doctorId" validate:"required"`
	Date     string `form:"date" validate:"required"`
	Time     string `form:"time" validate:"required"`
}

// CheckAvailability reports whether a slot is free.
func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	available, err := h.Service.IsSlotAvailable(c.Request.Context(), q.DoctorID, q.Date, q.Time)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Availability checked", gin.H{
		"doctorId":  q.DoctorID,
		"date":      q.Date,
		"time":      q.Time,
		"available": available,
	})
}

// UpdateAppointmentRequest is the generic update payload. Only the fields
// present are applied.
type UpdateAppointmentRequest struct {
	Status             *string `json:"status"`
	CancellationReason string  `json:"cancellationReason" validate:"max=500"`
	Notes              *string `json:"notes"`
	Prescription       *string `json:"prescription"`
	Reason             *string `json:"reason"`
	Symptoms           *string `json:"symptoms"`
	MedicalHistory     *string `json:"medicalHistory"`
	CurrentMedications *string `json:"currentMedications"`
	Allergies          *string `json:"allergies"`
	ConsultationType   *string `json:"consultationType"`
}

// Intents turns the payload into typed lifecycle intents.
func (r UpdateAppointmentRequest) Intents() ([]booking.UpdateIntent, error) {
	var intents []booking.UpdateIntent

	edit := booking.ClinicalEditIntent{
		Reason:             r.Reason,
		Symptoms:           r.Symptoms,
		MedicalHistory:     r.MedicalHistory,
		CurrentMedications: r.CurrentMedications,
		Allergies:          r.Allergies,
	}
	if r.ConsultationType != nil {
		ct := models.ConsultationType(*r.ConsultationType)
		edit.ConsultationType = &ct
	}
	if !edit.Empty() {
		intents = append(intents, edit)
	}

	if r.Status != nil {
		in, err := booking.StatusIntent(models.AppointmentStatus(*r.Status), r.CancellationReason)
		if err != nil {
			return nil, err
		}
		intents = append(intents, in)
	}

	if r.Notes != nil || r.Prescription != nil {
		intents = append(intents, booking.NotesIntent{Notes: r.Notes, Prescription: r.Prescription})
	}
	return intents, nil
}

// UpdateAppointment applies a generic update from the patient or the doctor.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	intents, err := req.Intents()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	appointment, err := h.Service.Update(c.Request.Context(), c.Param("id"), actor, intents...)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appointment)
}

// CancelAppointmentRequest carries the optional cancellation reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CancelAppointment cancels under the cutoff policy.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if c.Request.ContentLength != 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// ReviewRequest is the patient's review of a completed appointment.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// AddReview stores the review and refreshes the doctor's rating.
func (h *AppointmentHandler) AddReview(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Service.AddReview(c.Request.Context(), c.Param("id"), actor.UserID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Review added successfully", appointment)
}
