package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

type HabitHandler struct {
	svc      *services.HabitService
	analysis *services.AnalysisService
	logger   *zap.Logger
}

func NewHabitHandler(svc *services.HabitService, analysis *services.AnalysisService, logger *zap.Logger) *HabitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HabitHandler{
		svc:      svc,
		analysis: analysis,
		logger:   logger,
	}
}

type createHabitRequest struct {
	Task        string `json:"task" binding:"required"`
	Periodicity string `json:"periodicity" binding:"required"`
	Origin      string `json:"origin"`
}

type updateHabitRequest struct {
	Task        *string `json:"task"`
	Periodicity *string `json:"periodicity"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/:id", h.Get)
		habits.PATCH("/:id", h.Update)
		habits.DELETE("/:id", h.Deactivate)
	}
}

func (h *HabitHandler) Create(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		Task:        req.Task,
		Periodicity: req.Periodicity,
		Origin:      req.Origin,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List requires an explicit scope; ?periodicity= narrows it further.
func (h *HabitHandler) List(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var list []*domain.Habit
	if raw := c.Query("periodicity"); raw != "" {
		p, perr := domain.ParsePeriodicity(raw)
		if perr != nil {
			writeError(c, h.logger, perr)
			return
		}
		list, err = h.analysis.HabitsByPeriodicity(c.Request.Context(), p, scope)
	} else {
		list, err = h.analysis.ListHabits(c.Request.Context(), scope)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	habit, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Update(c *gin.Context) {
	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:          c.Param("id"),
		Task:        req.Task,
		Periodicity: req.Periodicity,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Deactivate(c *gin.Context) {
	habit, err := h.svc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}
