package notifier

import (
	"context"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/sirupsen/logrus"
)

// Message is one rendered notification handed to a delivery channel.
type Message struct {
	ID           string                  `json:"id"`
	Type         models.NotificationType `json:"type"`
	Recipient    string                  `json:"recipient,omitempty"`
	TemplateCode string                  `json:"template_code"`
	Text         string                  `json:"text"`
	Data         map[string]any          `json:"data"`
}

// Sink delivers a message and returns the channel's message id.
type Sink interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, payload any) error
}

const (
	NotificationExchange = "notifications"
	routingPrefix        = "notification."
)

// RabbitSink hands messages to the channel gateway through RabbitMQ.
type RabbitSink struct {
	pub Publisher
}

func NewRabbitSink(pub Publisher) *RabbitSink {
	return &RabbitSink{pub: pub}
}

func (s *RabbitSink) Send(ctx context.Context, msg Message) (string, error) {
	if err := s.pub.Publish(ctx, routingPrefix+string(msg.Type), msg.ID, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// LogSink only logs. Used for local runs without a gateway.
type LogSink struct{}

func (LogSink) Send(_ context.Context, msg Message) (string, error) {
	logrus.WithFields(logrus.Fields{
		"notification_id": msg.ID,
		"type":            msg.Type,
		"recipient":       msg.Recipient,
		"template":        msg.TemplateCode,
	}).Info(msg.Text)
	return "log-" + msg.ID, nil
}
