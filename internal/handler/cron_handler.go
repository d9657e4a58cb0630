package handler

import (
	"net/http"

	"github.com/Eursukkul/teetime-lifecycle/internal/scheduler"
	"github.com/labstack/echo/v4"
)

// CronHandler exposes the batch jobs for external schedulers.
type CronHandler struct {
	jobs *scheduler.Registry
}

func NewCronHandler(jobs *scheduler.Registry) *CronHandler {
	return &CronHandler{jobs: jobs}
}

func (h *CronHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/:job", h.RunJob)
}

func (h *CronHandler) RunJob(c echo.Context) error {
	summary, err := h.jobs.Run(c.Request().Context(), c.Param("job"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"job":     c.Param("job"),
		"summary": summary,
	})
}
