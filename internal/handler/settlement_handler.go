package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Eursukkul/teetime-lifecycle/internal/dto"
	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

type SettlementHandler struct {
	svc service.SettlementService
}

func NewSettlementHandler(svc service.SettlementService) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

func (h *SettlementHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/generate", h.Generate)
	g.GET("/:id", h.Get)
	g.POST("/:id/actions", h.Apply)
	g.GET("/:id/export", h.Export)
}

func (h *SettlementHandler) List(c echo.Context) error {
	filter := repository.SettlementFilter{
		Period: models.SettlementPeriod(c.QueryParam("period")),
		Status: models.SettlementStatus(c.QueryParam("status")),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}

	list, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SettlementHandler) Generate(c echo.Context) error {
	var req dto.GenerateSettlementRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Generate(c.Request().Context(), req.Period, req.StartDate, req.EndDate, req.Scope())
	if err != nil {
		return httpError(err)
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return c.JSON(code, res)
}

func (h *SettlementHandler) Get(c echo.Context) error {
	detail, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *SettlementHandler) Apply(c echo.Context) error {
	var req dto.SettlementActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	st, err := h.svc.Apply(c.Request().Context(), c.Param("id"), service.SettlementAction(req.Action), req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// Export renders into a buffer first so a failure can still produce a JSON
// error response.
func (h *SettlementHandler) Export(c echo.Context) error {
	var buf bytes.Buffer
	name, err := service.Export(c.Request().Context(), h.svc, c.Param("id"), &buf)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
