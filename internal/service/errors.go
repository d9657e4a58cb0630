package service

import (
	"errors"
	"fmt"
)

var (
	ErrTeeTimeNotFound      = errors.New("tee-time not found")
	ErrNoShowNotFound       = errors.New("no-show not found")
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrNotificationNotFound = errors.New("notification not found")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAmount     = errors.New("paid amount must be greater than zero")
	ErrInvalidPeriod     = errors.New("invalid settlement period")
	ErrUnknownAction     = errors.New("unknown settlement action")
	ErrDeliveryInFlight  = errors.New("notification delivery already in progress")
	ErrNotSendable       = errors.New("notification is not pending or failed")
)

// TransitionError describes a rejected state change. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
