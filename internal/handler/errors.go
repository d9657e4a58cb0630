package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/teetime-lifecycle/internal/scheduler"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

// httpError maps service errors onto status codes. Unknown errors become 500
// and are logged by the error handler.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrTeeTimeNotFound),
		errors.Is(err, service.ErrNoShowNotFound),
		errors.Is(err, service.ErrSettlementNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, scheduler.ErrUnknownJob):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrUnknownAction):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDeliveryInFlight),
		errors.Is(err, service.ErrNotSendable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}
