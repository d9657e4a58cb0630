package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/dto"
	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

type NoShowHandler struct {
	svc service.NoShowService
	loc *time.Location
}

func NewNoShowHandler(svc service.NoShowService, loc *time.Location) *NoShowHandler {
	return &NoShowHandler{svc: svc, loc: loc}
}

func (h *NoShowHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.POST("/:id/review", h.Review)
	g.POST("/:id/confirm", h.Confirm)
	g.POST("/:id/waive", h.Waive)
	g.POST("/:id/dispute", h.Dispute)
	g.POST("/:id/payment", h.RecordPayment)
}

func (h *NoShowHandler) respond(c echo.Context, ns *models.NoShow, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToNoShowResponse(ns, h.loc))
}

func (h *NoShowHandler) List(c echo.Context) error {
	filter := repository.NoShowFilter{
		Status:   models.NoShowStatus(c.QueryParam("status")),
		CourseID: c.QueryParam("course_id"),
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		filter.Offset = offset
	}

	list, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	resp := make([]dto.NoShowResponse, len(list))
	for i := range list {
		resp[i] = dto.ToNoShowResponse(&list[i], h.loc)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NoShowHandler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context(), c.QueryParam("course_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *NoShowHandler) Get(c echo.Context) error {
	ns, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	return h.respond(c, ns, err)
}

func (h *NoShowHandler) Review(c echo.Context) error {
	ns, err := h.svc.Review(c.Request().Context(), c.Param("id"))
	return h.respond(c, ns, err)
}

func (h *NoShowHandler) Confirm(c echo.Context) error {
	var req dto.ConfirmNoShowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ns, err := h.svc.Confirm(c.Request().Context(), c.Param("id"), req.ManagerID)
	return h.respond(c, ns, err)
}

func (h *NoShowHandler) Waive(c echo.Context) error {
	var req dto.WaiveNoShowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ns, err := h.svc.Waive(c.Request().Context(), c.Param("id"), req.ManagerID, req.Reason)
	return h.respond(c, ns, err)
}

func (h *NoShowHandler) Dispute(c echo.Context) error {
	var req dto.DisputeNoShowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ns, err := h.svc.Dispute(c.Request().Context(), c.Param("id"), req.Reason)
	return h.respond(c, ns, err)
}

func (h *NoShowHandler) RecordPayment(c echo.Context) error {
	var req dto.RecordPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ns, err := h.svc.RecordPayment(c.Request().Context(), c.Param("id"), req.PaidAmount, req.Notes)
	return h.respond(c, ns, err)
}
