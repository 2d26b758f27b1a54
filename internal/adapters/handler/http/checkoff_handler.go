package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

type CheckoffHandler struct {
	svc    *services.CheckoffService
	logger *zap.Logger
}

func NewCheckoffHandler(svc *services.CheckoffService, logger *zap.Logger) *CheckoffHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoffHandler{svc: svc, logger: logger}
}

func (h *CheckoffHandler) RegisterRoutes(router *gin.RouterGroup) {
	checkoffs := router.Group("/habits/:id/checkoffs")
	{
		checkoffs.POST("", h.Checkoff)
		checkoffs.GET("", h.History)
	}
}

func (h *CheckoffHandler) Checkoff(c *gin.Context) {
	outcome, err := h.svc.Checkoff(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (h *CheckoffHandler) History(c *gin.Context) {
	history, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
