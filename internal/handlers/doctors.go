package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
	"healthcare-booking-server/internal/utils"
)

// DoctorDirectory is the doctor store the handler needs.
type DoctorDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
	List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error)
	UpdateProfile(ctx context.Context, d *models.Doctor) error
}

// DoctorHandler serves the doctor directory.
type DoctorHandler struct {
	Doctors DoctorDirectory
	Logger  *zap.Logger
}

func NewDoctorHandler(doctors DoctorDirectory, logger *zap.Logger) *DoctorHandler {
	return &DoctorHandler{Doctors: doctors, Logger: logger}
}

// GetDoctors lists active doctors, optionally by ?specialization=.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	list, err := h.Doctors.List(c.Request.Context(), store.DoctorFilter{
		ActiveOnly:     true,
		Specialization: c.Query("specialization"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", list)
}

func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctor, err := h.Doctors.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor)
}

// UpdateDoctorRequest holds the editable profile fields. The rating is
// derived and cannot be set.
type UpdateDoctorRequest struct {
	Name            *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Specialization  *string  `json:"specialization" validate:"omitempty,min=1,max=100"`
	ConsultationFee *float64 `json:"consultationFee" validate:"omitempty,gte=0"`
	IsActive        *bool    `json:"isActive"`
}

// UpdateDoctor lets a doctor edit their own profile, or an admin any profile.
// Fee changes apply to future bookings only. isActive is admin-only.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if actor.Role != models.RoleAdmin && actor.UserID != id {
		utils.Forbidden(c, "You can only update your own profile")
		return
	}
	var req UpdateDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	// availability follows the account, which only admins moderate
	if req.IsActive != nil && actor.Role != models.RoleAdmin {
		utils.Forbidden(c, "Only administrators can change whether a doctor accepts bookings")
		return
	}

	doctor, err := h.Doctors.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}
	if req.IsActive != nil {
		doctor.IsActive = *req.IsActive
	}
	if err := h.Doctors.UpdateProfile(c.Request.Context(), doctor); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Doctor updated successfully", doctor)
}
