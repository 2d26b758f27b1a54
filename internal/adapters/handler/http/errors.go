package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var errScopeRequired = errors.New("origin and active query parameters are required")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPeriodicity),
		errors.Is(err, domain.ErrInvalidOrigin),
		errors.Is(err, domain.ErrHabitTaskEmpty),
		errors.Is(err, domain.ErrHabitTaskTooLong),
		errors.Is(err, domain.ErrInvalidCheckoff),
		errors.Is(err, errScopeRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrHabitNotFound),
		errors.Is(err, domain.ErrNoStreakData),
		errors.Is(err, domain.ErrNoActiveStreak):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrHabitNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// scopeFromQuery reads the mandatory origin and active query parameters.
func scopeFromQuery(c *gin.Context) (domain.Scope, error) {
	rawOrigin, okOrigin := c.GetQuery("origin")
	rawActive, okActive := c.GetQuery("active")
	if !okOrigin || !okActive {
		return domain.Scope{}, errScopeRequired
	}

	origin, err := domain.ParseOrigin(rawOrigin)
	if err != nil {
		return domain.Scope{}, err
	}
	active, err := strconv.ParseBool(rawActive)
	if err != nil {
		return domain.Scope{}, errScopeRequired
	}
	return domain.NewScope(origin, active)
}
