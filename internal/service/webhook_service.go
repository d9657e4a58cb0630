package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const EventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"

// Payment statuses reported by the gateway.
const (
	PaymentDone              = "DONE"
	PaymentWaitingForDeposit = "WAITING_FOR_DEPOSIT"
	PaymentCanceled          = "CANCELED"
	PaymentPartialCanceled   = "PARTIAL_CANCELED"
	PaymentAborted           = "ABORTED"
	PaymentExpired           = "EXPIRED"
)

type PaymentEvent struct {
	EventType  string
	CreatedAt  time.Time
	PaymentKey string
	OrderID    string
	Status     string
}

// WebhookResult reports what an event did. Handled is false for events that
// were accepted but required no change.
type WebhookResult struct {
	Handled       bool                 `json:"handled"`
	Reason        string               `json:"reason,omitempty"`
	BookingID     string               `json:"booking_id,omitempty"`
	TeeTimeID     string               `json:"tee_time_id,omitempty"`
	BookingStatus models.BookingStatus `json:"booking_status,omitempty"`
	TeeTimeStatus models.TeeTimeStatus `json:"tee_time_status,omitempty"`
}

type transition struct {
	from         []models.BookingStatus
	booking      models.BookingStatus
	teeTime      models.TeeTimeStatus
	notification models.NotificationType
}

var paymentTransitions = map[string]transition{
	PaymentDone: {
		from:         []models.BookingStatus{models.BookingPending, models.BookingDepositPending},
		booking:      models.BookingConfirmed,
		teeTime:      models.TeeTimeConfirmed,
		notification: models.NotifyBookingConfirmed,
	},
	PaymentWaitingForDeposit: {
		from:         []models.BookingStatus{models.BookingPending},
		booking:      models.BookingDepositPending,
		teeTime:      models.TeeTimeDepositPending,
		notification: models.NotifyPaymentPending,
	},
}

var cancelTransition = transition{
	from:         []models.BookingStatus{models.BookingPending, models.BookingDepositPending, models.BookingConfirmed},
	booking:      models.BookingCanceled,
	teeTime:      models.TeeTimeAvailable,
	notification: models.NotifyBookingCanceled,
}

func lookupTransition(status string) (transition, bool) {
	switch status {
	case PaymentCanceled, PaymentPartialCanceled, PaymentAborted, PaymentExpired:
		return cancelTransition, true
	}
	t, ok := paymentTransitions[status]
	return t, ok
}

type WebhookService interface {
	HandlePaymentEvent(ctx context.Context, evt PaymentEvent) (*WebhookResult, error)
}

type webhookService struct {
	tx          repository.Transactor
	bookingRepo repository.BookingRepository
	teeTimeRepo repository.TeeTimeRepository
	notifRepo   repository.NotificationRepository
	dumping     DumpingService
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Entry
}

func NewWebhookService(
	tx repository.Transactor,
	bookingRepo repository.BookingRepository,
	teeTimeRepo repository.TeeTimeRepository,
	notifRepo repository.NotificationRepository,
	dumping DumpingService,
	loc *time.Location,
) WebhookService {
	return &webhookService{
		tx:          tx,
		bookingRepo: bookingRepo,
		teeTimeRepo: teeTimeRepo,
		notifRepo:   notifRepo,
		dumping:     dumping,
		loc:         loc,
		now:         time.Now,
		log:         logrus.WithField("component", "webhook"),
	}
}

func ignored(reason string) *WebhookResult {
	return &WebhookResult{Handled: false, Reason: reason}
}

// UnsupportedEvent is the result for gateway events other than status changes.
func UnsupportedEvent() *WebhookResult {
	return ignored("unsupported event type")
}

// HandlePaymentEvent applies a payment status change. Events that do not
// apply are reported as not handled rather than as errors, so the sender
// does not retry them.
func (s *webhookService) HandlePaymentEvent(ctx context.Context, evt PaymentEvent) (*WebhookResult, error) {
	log := s.log.WithFields(logrus.Fields{"order_id": evt.OrderID, "status": evt.Status})

	if evt.EventType != EventPaymentStatusChanged {
		return UnsupportedEvent(), nil
	}
	t, ok := lookupTransition(evt.Status)
	if !ok {
		log.Info("ignoring unknown payment status")
		return ignored("unknown payment status"), nil
	}

	var result *WebhookResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookingRepo.FindByOrderIDForUpdate(ctx, evt.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = ignored("booking not found")
				return nil
			}
			return err
		}
		result = &WebhookResult{BookingID: b.ID, TeeTimeID: b.TeeTimeID, BookingStatus: b.Status}

		if !containsStatus(t.from, b.Status) {
			result.Reason = "booking already " + string(b.Status)
			return nil
		}

		if evt.PaymentKey != "" && evt.PaymentKey != b.PaymentKey {
			if err := s.bookingRepo.SetPaymentKey(ctx, b.ID, evt.PaymentKey); err != nil {
				return err
			}
		}
		if err := s.bookingRepo.UpdateStatus(ctx, b.ID, t.booking); err != nil {
			return err
		}
		b.Status = t.booking

		teeStatus, err := s.moveTeeTime(ctx, b.TeeTimeID, t.teeTime)
		if err != nil {
			return err
		}

		now := s.now()
		if t.booking == models.BookingCanceled {
			if _, err := s.notifRepo.CancelPendingForBooking(ctx, b.ID); err != nil {
				return err
			}
		}
		if _, err := s.notifRepo.Create(ctx, bookingNotification(t.notification, b, now, s.loc, customerPhone(b))); err != nil {
			return err
		}
		if t.booking == models.BookingConfirmed {
			for _, n := range roundReminders(b, now, s.loc) {
				if _, err := s.notifRepo.Create(ctx, n); err != nil {
					return err
				}
			}
		}

		result.Handled = true
		result.BookingStatus = t.booking
		result.TeeTimeStatus = teeStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Handled {
		log.WithField("booking_id", result.BookingID).Info("payment event applied")
		if result.TeeTimeStatus == models.TeeTimeAvailable {
			s.reprice(ctx, log, result)
		}
	}
	return result, nil
}

// moveTeeTime applies status to a tee-time unless it has already reached an
// end state such as a claimed no-show.
func (s *webhookService) moveTeeTime(ctx context.Context, id string, status models.TeeTimeStatus) (models.TeeTimeStatus, error) {
	tt, err := s.teeTimeRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return "", err
	}
	switch tt.Status {
	case models.TeeTimeNoShowClaimed, models.TeeTimeCompleted, models.TeeTimeCanceled:
		return tt.Status, nil
	}
	if tt.Status == status {
		return status, nil
	}
	if err := s.teeTimeRepo.UpdateStatus(ctx, id, status); err != nil {
		return "", err
	}
	return status, nil
}

// reprice re-evaluates dumping rules for reopened inventory. Failures are
// logged; the next dumping run picks the tee-time up anyway.
func (s *webhookService) reprice(ctx context.Context, log *logrus.Entry, result *WebhookResult) {
	if s.dumping == nil {
		return
	}
	upd, err := s.dumping.ReevaluateTeeTime(ctx, result.TeeTimeID)
	if err != nil {
		log.WithError(err).Warn("dumping re-evaluation failed")
		return
	}
	if upd != nil {
		log.WithFields(logrus.Fields{"tee_time_id": upd.TeeTimeID, "price": upd.NewPrice}).Info("reopened tee-time repriced")
	}
}

func containsStatus(list []models.BookingStatus, s models.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
