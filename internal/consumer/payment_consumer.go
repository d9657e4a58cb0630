package consumer

import (
	"context"
	"encoding/json"

	"github.com/Eursukkul/teetime-lifecycle/internal/dto"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	PaymentExchange   = "payments"
	PaymentQueue      = "teetime.payment-events"
	PaymentRoutingKey = "payment.status_changed"
)

// PaymentConsumer applies payment status events that arrive over RabbitMQ
// instead of the HTTP webhook.
type PaymentConsumer struct {
	svc      service.WebhookService
	validate *validator.Validate
	log      *logrus.Entry
}

func NewPaymentConsumer(svc service.WebhookService) *PaymentConsumer {
	return &PaymentConsumer{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logrus.WithField("component", "payment-consumer"),
	}
}

// Start handles deliveries until msgs is closed. The returned channel is
// closed once the last delivery has been acknowledged.
func (pc *PaymentConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			pc.handleMessage(ctx, msg)
		}
		pc.log.Info("channel closed, stopping consumer")
	}()
	return done
}

// handleMessage drops payloads that can never succeed and requeues on store
// failures.
func (pc *PaymentConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var req dto.PaymentWebhookRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		pc.log.WithError(err).Warn("failed to unmarshal payment event")
		_ = msg.Nack(false, false)
		return
	}
	if req.Unsupported() {
		pc.log.WithField("event_type", req.EventType).Info("ignoring unsupported payment event")
		_ = msg.Ack(false)
		return
	}
	if err := pc.validate.Struct(req); err != nil {
		pc.log.WithError(err).Warn("invalid payment event")
		_ = msg.Nack(false, false)
		return
	}

	log := pc.log.WithFields(logrus.Fields{"order_id": req.Data.OrderID, "status": req.Data.Status})
	res, err := pc.svc.HandlePaymentEvent(ctx, req.ToPaymentEvent())
	if err != nil {
		log.WithError(err).Error("failed to apply payment event")
		_ = msg.Nack(false, true)
		return
	}

	if res.Handled {
		log.WithField("booking_id", res.BookingID).Info("payment event applied")
	} else {
		log.WithField("reason", res.Reason).Info("payment event ignored")
	}
	_ = msg.Ack(false)
}
