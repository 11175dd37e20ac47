// Package http 场景模拟 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scenariosim/internal/scenario/application"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
)

type Handler struct {
	app *application.ScenarioApplicationService
}

func NewHandler(r gin.IRouter, app *application.ScenarioApplicationService) *Handler {
	h := &Handler{app: app}
	v1 := r.Group("/api/v1/scenario")
	{
		v1.POST("/run", h.Run)
		v1.GET("/runs/:id", h.Get)
		v1.GET("/runs", h.List)
	}
	return h
}

func (h *Handler) Run(c *gin.Context) {
	var cmd application.RunScenarioCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.app.RunScenario(c.Request.Context(), cmd)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) Get(c *gin.Context) {
	dto, err := h.app.GetScenarioRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	dtos, err := h.app.ListScenarioRuns(c.Request.Context(), c.Query("topic_id"), limit)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": dtos, "count": len(dtos)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrScenarioNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
