package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/notifier"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/Eursukkul/teetime-lifecycle/pkg/lock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	sendLockTTL         = 30 * time.Second
	reminderLookahead   = 48 * time.Hour
	defaultDispatchSize = 100
)

type NotificationPolicy struct {
	MaxAttempts          int
	BatchSize            int
	PaymentReminderAfter time.Duration
}

func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxAttempts:          3,
		BatchSize:            defaultDispatchSize,
		PaymentReminderAfter: 6 * time.Hour,
	}
}

type NotificationService interface {
	// Send delivers one notification. Attempts on the same id are serialized.
	Send(ctx context.Context, id string) (*models.Notification, error)
	DispatchDue(ctx context.Context) (*BatchSummary, error)
	// RunReminders backfills round and payment reminders.
	RunReminders(ctx context.Context) (*BatchSummary, error)
}

type notificationService struct {
	notifRepo   repository.NotificationRepository
	bookingRepo repository.BookingRepository
	sink        notifier.Sink
	renderer    *notifier.Renderer
	locker      lock.Locker
	policy      NotificationPolicy
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Entry
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	bookingRepo repository.BookingRepository,
	sink notifier.Sink,
	renderer *notifier.Renderer,
	locker lock.Locker,
	policy NotificationPolicy,
	loc *time.Location,
) NotificationService {
	return &notificationService{
		notifRepo:   notifRepo,
		bookingRepo: bookingRepo,
		sink:        sink,
		renderer:    renderer,
		locker:      locker,
		policy:      policy,
		loc:         loc,
		now:         time.Now,
		log:         logrus.WithField("component", "notification"),
	}
}

func (s *notificationService) Send(ctx context.Context, id string) (*models.Notification, error) {
	release, err := s.locker.Acquire(ctx, "notification:"+id, sendLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, ErrDeliveryInFlight
		}
		return nil, err
	}
	defer release()

	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.Status != models.NotificationPending && n.Status != models.NotificationFailed {
		return n, ErrNotSendable
	}

	log := s.log.WithFields(logrus.Fields{"notification_id": n.ID, "type": n.Type})

	text, err := s.renderer.Render(n.Type, n.TemplateData)
	if err == nil {
		var messageID string
		messageID, err = s.sink.Send(ctx, notifier.Message{
			ID:           n.ID,
			Type:         n.Type,
			Recipient:    n.Recipient,
			TemplateCode: notifier.TemplateCode(n.Type),
			Text:         text,
			Data:         n.TemplateData,
		})
		if err == nil {
			now := s.now()
			ok, err := s.notifRepo.MarkSent(ctx, n.ID, messageID, now)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("message_id", messageID).Warn("notification delivered but no longer sendable")
				return s.reload(ctx, n)
			}
			n.Status = models.NotificationSent
			n.MessageID = messageID
			n.SentAt = &now
			n.Attempts++
			n.LastError = ""
			log.WithField("message_id", messageID).Info("notification sent")
			return n, nil
		}
	}

	log.WithError(err).Warn("notification delivery failed")
	ok, markErr := s.notifRepo.MarkFailed(ctx, n.ID, err.Error())
	if markErr != nil {
		return nil, markErr
	}
	if !ok {
		return s.reload(ctx, n)
	}
	n.Status = models.NotificationFailed
	n.Attempts++
	n.LastError = err.Error()
	return n, nil
}

// reload returns the stored row after it changed status during a send.
func (s *notificationService) reload(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	stored, err := s.notifRepo.FindByID(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return stored, ErrNotSendable
}

func (s *notificationService) DispatchDue(ctx context.Context) (*BatchSummary, error) {
	limit := s.policy.BatchSize
	if limit <= 0 {
		limit = defaultDispatchSize
	}
	due, err := s.notifRepo.FindDue(ctx, s.now(), s.policy.MaxAttempts, limit)
	if err != nil {
		return nil, err
	}

	sum := newBatchSummary()
	for _, n := range due {
		sum.Checked++
		sent, err := s.Send(ctx, n.ID)
		switch {
		case errors.Is(err, ErrDeliveryInFlight), errors.Is(err, ErrNotSendable):
			sum.Skipped++
		case err != nil:
			sum.fail(s.log, n.ID, err)
		case sent.Status == models.NotificationSent:
			sum.Updated++
		default:
			sum.fail(s.log, n.ID, errors.New(sent.LastError))
		}
	}
	s.log.WithFields(logrus.Fields{"checked": sum.Checked, "sent": sum.Updated, "failed": sum.Failed}).Info("dispatch finished")
	return &sum, nil
}

func (s *notificationService) RunReminders(ctx context.Context) (*BatchSummary, error) {
	now := s.now()
	sum := newBatchSummary()

	confirmed, err := s.bookingRepo.FindConfirmedStartingBetween(ctx, now, now.Add(reminderLookahead))
	if err != nil {
		return nil, err
	}
	for i := range confirmed {
		b := &confirmed[i]
		sum.Checked++
		for _, n := range roundReminders(b, now, s.loc) {
			s.enqueue(ctx, &sum, b.ID, n)
		}
	}

	if s.policy.PaymentReminderAfter > 0 {
		pending, err := s.bookingRepo.FindDepositPendingSince(ctx, now.Add(-s.policy.PaymentReminderAfter))
		if err != nil {
			return nil, err
		}
		for i := range pending {
			b := &pending[i]
			sum.Checked++
			s.enqueue(ctx, &sum, b.ID, bookingNotification(models.NotifyPaymentReminder, b, now, s.loc, customerPhone(b)))
		}
	}

	s.log.WithFields(logrus.Fields{"checked": sum.Checked, "created": sum.Created}).Info("reminder run finished")
	return &sum, nil
}

func (s *notificationService) enqueue(ctx context.Context, sum *BatchSummary, bookingID string, n *models.Notification) {
	created, err := s.notifRepo.Create(ctx, n)
	switch {
	case err != nil:
		sum.fail(s.log, bookingID, err)
	case created:
		sum.Created++
	default:
		sum.Skipped++
	}
}
