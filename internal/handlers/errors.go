package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/booking"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/store"
	"healthcare-booking-server/internal/utils"
)

var kindStatus = map[booking.Kind]int{
	booking.KindNotFound:        http.StatusNotFound,
	booking.KindInvalidInput:    http.StatusBadRequest,
	booking.KindConflict:        http.StatusConflict,
	booking.KindForbidden:       http.StatusForbidden,
	booking.KindInvalidState:    http.StatusConflict,
	booking.KindPolicyViolation: http.StatusUnprocessableEntity,
}

// respondError writes the error envelope for err. Unknown errors are logged
// and reported as a bare 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var be *booking.Error
	switch {
	case errors.As(err, &be):
		status, ok := kindStatus[be.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		utils.ErrorWithCode(c, status, string(be.Kind), be.Message)
	case errors.Is(err, store.ErrNotFound):
		utils.NotFound(c, "Resource not found")
	case errors.Is(err, store.ErrDuplicate):
		utils.Conflict(c, "Resource already exists")
	case errors.Is(err, store.ErrStale):
		utils.Conflict(c, "Resource was modified by another request, retry")
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.InternalServerError(c, "Internal server error")
	}
}

func actorOrAbort(c *gin.Context) (booking.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "Authenticated user not found in token")
	}
	return actor, ok
}
