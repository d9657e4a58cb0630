package handler

import (
	"net/http"

	"github.com/Eursukkul/teetime-lifecycle/internal/dto"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	svc service.WebhookService
}

func NewWebhookHandler(svc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/payments", h.PaymentStatusChanged)
}

// PaymentStatusChanged answers 200 for every well-formed event, including
// ones that change nothing, so the gateway stops retrying them.
func (h *WebhookHandler) PaymentStatusChanged(c echo.Context) error {
	var req dto.PaymentWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Unsupported() {
		return c.JSON(http.StatusOK, service.UnsupportedEvent())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.svc.HandlePaymentEvent(c.Request().Context(), req.ToPaymentEvent())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
