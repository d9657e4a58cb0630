package handler

import (
	"net/http"

	"github.com/Eursukkul/teetime-lifecycle/internal/dto"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/dispatch", h.Dispatch)
	g.POST("/:id/send", h.Send)
}

// Send returns 200 with the stored outcome; a failed delivery is reported in
// the body, not as an HTTP error.
func (h *NotificationHandler) Send(c echo.Context) error {
	n, err := h.svc.Send(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToNotificationResponse(n))
}

func (h *NotificationHandler) Dispatch(c echo.Context) error {
	sum, err := h.svc.DispatchDue(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}
