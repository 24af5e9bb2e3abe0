package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
	"healthcare-booking-server/internal/utils"
)

// UserDirectory is the user store the handler needs.
type UserDirectory interface {
	Create(ctx context.Context, u *models.User, profile *models.Doctor) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter store.UserFilter) ([]models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	Users  UserDirectory
	Logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserDirectory, logger *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

// CreateUserRequest represents the request body for creating a user by an admin.
// Doctor accounts also get a directory entry built from the doctor fields.
type CreateUserRequest struct {
	FirstName       string  `json:"firstName" validate:"required"`
	LastName        string  `json:"lastName" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8"`
	Role            string  `json:"role" validate:"required,oneof=patient doctor admin"`
	Specialization  string  `json:"specialization" validate:"required_if=Role doctor,max=100"`
	ConsultationFee float64 `json:"consultationFee" validate:"gte=0"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      models.Role(req.Role),
		IsActive:  true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password")
		return
	}

	var profile *models.Doctor
	if user.Role == models.RoleDoctor {
		profile = &models.Doctor{
			Name:            "Dr. " + user.FullName(),
			Specialization:  req.Specialization,
			ConsultationFee: req.ConsultationFee,
			IsActive:        true,
		}
	}

	if err := h.Users.Create(c.Request.Context(), &user, profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.Conflict(c, "User with this email already exists")
			return
		}
		respondError(c, h.Logger, err)
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching users (admin), optionally by ?role=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		utils.BadRequest(c, "Unknown role")
		return
	}
	h.listUsers(c, role, "Users fetched successfully")
}

// GetDoctorPatients lists patient accounts for doctors and admins.
func (h *UserHandler) GetDoctorPatients(c *gin.Context) {
	h.listUsers(c, models.RolePatient, "Patients fetched successfully")
}

func (h *UserHandler) listUsers(c *gin.Context, role models.Role, message string) {
	users, err := h.Users.List(c.Request.Context(), store.UserFilter{Role: role})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	utils.Success(c, message, sanitized)
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.Users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// SetActiveRequest toggles an account.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// SetUserActive activates or deactivates an account (admin). A deactivated
// doctor stops accepting bookings.
func (h *UserHandler) SetUserActive(c *gin.Context) {
	var req SetActiveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	id := c.Param("id")
	if err := h.Users.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	h.Logger.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", *req.IsActive))
	utils.Success(c, "User updated successfully", gin.H{"id": id, "isActive": *req.IsActive})
}

// GetProfile returns the authenticated caller.
func (h *UserHandler) GetProfile(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	user, err := h.Users.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}
