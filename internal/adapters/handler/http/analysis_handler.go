package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

type AnalysisHandler struct {
	svc    *services.AnalysisService
	logger *zap.Logger
}

func NewAnalysisHandler(svc *services.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{svc: svc, logger: logger}
}

func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/habits/:id/streaks", h.StreakHistory)
	router.GET("/habits/:id/streaks/longest", h.LongestForHabit)

	analysis := router.Group("/analysis")
	{
		analysis.GET("/longest-streak", h.Longest)
		analysis.GET("/overview", h.Overview)
	}
}

func (h *AnalysisHandler) StreakHistory(c *gin.Context) {
	streaks, err := h.svc.StreakHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, streaks)
}

func (h *AnalysisHandler) LongestForHabit(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	report, err := h.svc.LongestStreakForHabit(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalysisHandler) Longest(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	report, err := h.svc.LongestStreak(c.Request.Context(), scope)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalysisHandler) Overview(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	summaries, err := h.svc.Overview(c.Request.Context(), scope)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}
