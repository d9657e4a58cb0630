package dto

import (
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
)

// PaymentWebhookRequest is the payment gateway's status-change callback. The
// same body arrives on the payments exchange.
type PaymentWebhookRequest struct {
	EventType string             `json:"eventType" validate:"required"`
	CreatedAt string             `json:"createdAt"`
	Data      PaymentWebhookData `json:"data"`
}

type PaymentWebhookData struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId" validate:"required"`
	Status     string `json:"status" validate:"required"`
}

// Unsupported reports an event type the engine does not act on. Such bodies
// carry no status-change data and are accepted without validation.
func (r PaymentWebhookRequest) Unsupported() bool {
	return r.EventType != "" && r.EventType != service.EventPaymentStatusChanged
}

// ToPaymentEvent converts the request. The gateway sends createdAt with or
// without an offset; an unparsable value is left zero.
func (r PaymentWebhookRequest) ToPaymentEvent() service.PaymentEvent {
	evt := service.PaymentEvent{
		EventType:  r.EventType,
		PaymentKey: r.Data.PaymentKey,
		OrderID:    r.Data.OrderID,
		Status:     r.Data.Status,
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			evt.CreatedAt = t
			break
		}
	}
	return evt
}

type ConfirmNoShowRequest struct {
	ManagerID string `json:"manager_id" validate:"required"`
}

type WaiveNoShowRequest struct {
	ManagerID string `json:"manager_id" validate:"required"`
	Reason    string `json:"reason"`
}

type DisputeNoShowRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type RecordPaymentRequest struct {
	PaidAmount int64  `json:"paid_amount" validate:"required,gt=0"`
	Notes      string `json:"notes"`
}

type SettlementActionRequest struct {
	Action string `json:"action" validate:"required,oneof=confirm transfer complete recalculate"`
	Notes  string `json:"notes"`
}

type GenerateSettlementRequest struct {
	Period    models.SettlementPeriod `json:"period" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	StartDate string                  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string                  `json:"end_date" validate:"required,datetime=2006-01-02"`
	CourseID  string                  `json:"course_id" validate:"omitempty,uuid"`
	ManagerID string                  `json:"manager_id" validate:"omitempty,uuid"`
}

func (r GenerateSettlementRequest) Scope() models.SettlementScope {
	return models.SettlementScope{CourseID: r.CourseID, ManagerID: r.ManagerID}
}
