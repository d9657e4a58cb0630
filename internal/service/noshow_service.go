package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultWaiveReason = "Manager waived"

type NoShowPolicy struct {
	GraceMinutes    int
	LookbackMinutes int
	PenaltyPercent  int64
	MinPenalty      int64
	MaxPenalty      int64
	PaymentWindow   time.Duration
	BankName        string
	AccountNumber   string
	AccountHolder   string
}

func DefaultNoShowPolicy() NoShowPolicy {
	return NoShowPolicy{
		GraceMinutes:    30,
		LookbackMinutes: 24 * 60,
		PenaltyPercent:  30,
		MinPenalty:      30000,
		MaxPenalty:      100000,
		PaymentWindow:   7 * 24 * time.Hour,
		BankName:        "토스뱅크",
		AccountNumber:   "1234-5678-9012",
		AccountHolder:   "안심골프",
	}
}

// Penalty is PenaltyPercent of amount clamped to [MinPenalty, MaxPenalty] and
// rounded down to a whole 1000.
func (p NoShowPolicy) Penalty(amount int64) int64 {
	penalty := amount * p.PenaltyPercent / 100
	penalty = min(max(penalty, p.MinPenalty), p.MaxPenalty)
	return penalty / 1000 * 1000
}

type NoShowSweepSummary struct {
	BatchSummary
	WarningsSent      int `json:"warnings_sent"`
	PenaltiesNotified int `json:"penalties_notified"`
}

type NoShowStats struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	Confirmed     int64 `json:"confirmed"`
	Paid          int64 `json:"paid"`
	Waived        int64 `json:"waived"`
	Disputed      int64 `json:"disputed"`
	PendingAmount int64 `json:"pending_amount"`
	PaidAmount    int64 `json:"paid_amount"`
}

type NoShowService interface {
	Sweep(ctx context.Context) (*NoShowSweepSummary, error)
	Review(ctx context.Context, id string) (*models.NoShow, error)
	Confirm(ctx context.Context, id, managerID string) (*models.NoShow, error)
	Waive(ctx context.Context, id, managerID, reason string) (*models.NoShow, error)
	Dispute(ctx context.Context, id, reason string) (*models.NoShow, error)
	RecordPayment(ctx context.Context, id string, paidAmount int64, notes string) (*models.NoShow, error)
	Get(ctx context.Context, id string) (*models.NoShow, error)
	List(ctx context.Context, filter repository.NoShowFilter) ([]models.NoShow, error)
	Stats(ctx context.Context, courseID string) (*NoShowStats, error)
}

type noShowService struct {
	tx          repository.Transactor
	noShowRepo  repository.NoShowRepository
	bookingRepo repository.BookingRepository
	notifRepo   repository.NotificationRepository
	policy      NoShowPolicy
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Entry
}

func NewNoShowService(
	tx repository.Transactor,
	noShowRepo repository.NoShowRepository,
	bookingRepo repository.BookingRepository,
	notifRepo repository.NotificationRepository,
	policy NoShowPolicy,
	loc *time.Location,
) NoShowService {
	return &noShowService{
		tx:          tx,
		noShowRepo:  noShowRepo,
		bookingRepo: bookingRepo,
		notifRepo:   notifRepo,
		policy:      policy,
		loc:         loc,
		now:         time.Now,
		log:         logrus.WithField("component", "noshow"),
	}
}

// step moves ns to next when the transition table allows it.
func step(ns *models.NoShow, next models.NoShowStatus) error {
	if !models.CanTransitionNoShow(ns.Status, next) {
		return &TransitionError{Entity: "no-show", From: string(ns.Status), To: string(next)}
	}
	ns.Status = next
	return nil
}

func (s *noShowService) Sweep(ctx context.Context) (*NoShowSweepSummary, error) {
	now := s.now()
	sum := &NoShowSweepSummary{BatchSummary: newBatchSummary()}

	from := now.Add(-time.Duration(s.policy.LookbackMinutes) * time.Minute)
	to := now.Add(-time.Duration(s.policy.GraceMinutes) * time.Minute)
	candidates, err := s.bookingRepo.FindNoShowCandidates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		b := &candidates[i]
		sum.Checked++
		created, err := s.openNoShow(ctx, b, now)
		switch {
		case err != nil:
			sum.fail(s.log, b.ID, err)
		case created:
			sum.Created++
			sum.WarningsSent++
		default:
			sum.Skipped++
		}
	}

	confirmed, err := s.noShowRepo.FindConfirmedUnnotified(ctx)
	if err != nil {
		return nil, err
	}
	for _, ns := range confirmed {
		sum.Checked++
		notified, err := s.notifyConfirmed(ctx, ns.ID, now)
		switch {
		case err != nil:
			sum.fail(s.log, ns.ID, err)
		case notified:
			sum.Updated++
			sum.PenaltiesNotified++
		default:
			sum.Skipped++
		}
	}

	s.log.WithFields(logrus.Fields{
		"checked":            sum.Checked,
		"warnings_sent":      sum.WarningsSent,
		"penalties_notified": sum.PenaltiesNotified,
		"failed":             sum.Failed,
	}).Info("no-show sweep finished")
	return sum, nil
}

// openNoShow records a suspected no-show and warns the course manager. A
// record created concurrently for the same booking counts as a skip.
func (s *noShowService) openNoShow(ctx context.Context, b *models.Booking, now time.Time) (bool, error) {
	ns := &models.NoShow{
		BookingID:     b.ID,
		TeeTimeID:     b.TeeTimeID,
		CustomerID:    b.CustomerID,
		Status:        models.NoShowPendingCheck,
		BookingAmount: b.Amount,
		PenaltyAmount: s.policy.Penalty(b.Amount),
		DetectedAt:    now,
	}
	if b.TeeTime != nil {
		ns.CourseID = b.TeeTime.CourseID
	}
	if err := step(ns, models.NoShowWarningSent); err != nil {
		return false, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.noShowRepo.Create(ctx, ns); err != nil {
			return err
		}
		data := bookingData(b, s.loc)
		data["noshowId"] = ns.ID
		data["penaltyAmount"] = ns.PenaltyAmount
		_, err := s.notifRepo.Create(ctx, &models.Notification{
			Type:         models.NotifyNoShowWarning,
			Status:       models.NotificationPending,
			ScheduledAt:  now,
			Recipient:    managerPhone(b),
			BookingID:    &b.ID,
			DedupeKey:    dedupeKey(models.NotifyNoShowWarning, ns.ID),
			TemplateData: data,
		})
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{"noshow_id": ns.ID, "booking_id": b.ID}).Info("no-show warning sent")
	return true, nil
}

// notifyConfirmed charges a CONFIRMED record that has not been notified yet.
func (s *noShowService) notifyConfirmed(ctx context.Context, id string, now time.Time) (bool, error) {
	var notified bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ns, err := s.noShowRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ns.Status != models.NoShowConfirmed || ns.NotifiedAt != nil {
			return nil
		}
		if err := s.charge(ctx, ns, now); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateStatus(ctx, ns.BookingID, models.BookingNoShowClaimed); err != nil {
			return err
		}
		notified = true
		return s.noShowRepo.Save(ctx, ns)
	})
	return notified, err
}

// charge enqueues the customer penalty notice and moves ns from CONFIRMED to
// PENALTY_NOTIFIED. The caller saves ns.
func (s *noShowService) charge(ctx context.Context, ns *models.NoShow, now time.Time) error {
	if ns.PenaltyAmount <= 0 {
		ns.PenaltyAmount = s.policy.Penalty(ns.BookingAmount)
	}
	deadline := now.Add(s.policy.PaymentWindow)

	data := datatypes.JSONMap{}
	recipient := ""
	if ns.Booking != nil {
		data = bookingData(ns.Booking, s.loc)
		recipient = customerPhone(ns.Booking)
	}
	data["noshowId"] = ns.ID
	data["penaltyAmount"] = ns.PenaltyAmount
	data["bankName"] = s.policy.BankName
	data["accountNumber"] = s.policy.AccountNumber
	data["accountHolder"] = s.policy.AccountHolder
	data["paymentDeadline"] = deadline.In(s.loc).Format(models.DateLayout)

	bookingID := ns.BookingID
	if _, err := s.notifRepo.Create(ctx, &models.Notification{
		Type:         models.NotifyNoShowCharged,
		Status:       models.NotificationPending,
		ScheduledAt:  now,
		Recipient:    recipient,
		BookingID:    &bookingID,
		TemplateData: data,
	}); err != nil {
		return err
	}

	if err := step(ns, models.NoShowPenaltyNotified); err != nil {
		return err
	}
	ns.NotifiedAt = &now
	ns.PaymentDeadline = &deadline
	return nil
}

// mutate runs fn on the locked record and saves it when fn succeeds.
func (s *noShowService) mutate(ctx context.Context, id string, fn func(ctx context.Context, ns *models.NoShow) error) (*models.NoShow, error) {
	var out *models.NoShow
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ns, err := s.noShowRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoShowNotFound
			}
			return err
		}
		if err := fn(ctx, ns); err != nil {
			return err
		}
		if err := s.noShowRepo.Save(ctx, ns); err != nil {
			return err
		}
		out = ns
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *noShowService) Review(ctx context.Context, id string) (*models.NoShow, error) {
	return s.mutate(ctx, id, func(ctx context.Context, ns *models.NoShow) error {
		return step(ns, models.NoShowManagerReview)
	})
}

// Confirm locks the penalty and notifies the customer in one step. A record in
// WARNING_SENT passes through MANAGER_REVIEW.
func (s *noShowService) Confirm(ctx context.Context, id, managerID string) (*models.NoShow, error) {
	ns, err := s.mutate(ctx, id, func(ctx context.Context, ns *models.NoShow) error {
		switch ns.Status {
		case models.NoShowWarningSent:
			if err := step(ns, models.NoShowManagerReview); err != nil {
				return err
			}
		case models.NoShowManagerReview, models.NoShowDisputed:
		default:
			return &TransitionError{Entity: "no-show", From: string(ns.Status), To: string(models.NoShowConfirmed)}
		}
		if err := step(ns, models.NoShowConfirmed); err != nil {
			return err
		}

		now := s.now()
		ns.ConfirmedAt = &now
		ns.ConfirmedBy = managerID
		if err := s.bookingRepo.UpdateStatus(ctx, ns.BookingID, models.BookingNoShowClaimed); err != nil {
			return err
		}
		return s.charge(ctx, ns, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"noshow_id": id, "manager_id": managerID, "penalty": ns.PenaltyAmount}).Info("no-show confirmed")
	return ns, nil
}

func (s *noShowService) Waive(ctx context.Context, id, managerID, reason string) (*models.NoShow, error) {
	if reason == "" {
		reason = defaultWaiveReason
	}
	ns, err := s.mutate(ctx, id, func(ctx context.Context, ns *models.NoShow) error {
		if err := step(ns, models.NoShowWaived); err != nil {
			return err
		}
		ns.WaiveReason = reason
		ns.ConfirmedBy = managerID
		return s.bookingRepo.UpdateStatus(ctx, ns.BookingID, models.BookingCompleted)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"noshow_id": id, "manager_id": managerID}).Info("no-show waived")
	return ns, nil
}

func (s *noShowService) Dispute(ctx context.Context, id, reason string) (*models.NoShow, error) {
	return s.mutate(ctx, id, func(ctx context.Context, ns *models.NoShow) error {
		if err := step(ns, models.NoShowDisputed); err != nil {
			return err
		}
		ns.DisputeReason = reason
		return nil
	})
}

// RecordPayment accepts partial payments. A record still in CONFIRMED passes
// through PENALTY_NOTIFIED without a notification time.
func (s *noShowService) RecordPayment(ctx context.Context, id string, paidAmount int64, notes string) (*models.NoShow, error) {
	if paidAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	ns, err := s.mutate(ctx, id, func(ctx context.Context, ns *models.NoShow) error {
		switch ns.Status {
		case models.NoShowConfirmed:
			if err := step(ns, models.NoShowPenaltyNotified); err != nil {
				return err
			}
		case models.NoShowPenaltyNotified:
		default:
			return &TransitionError{Entity: "no-show", From: string(ns.Status), To: string(models.NoShowPenaltyPaid)}
		}
		if err := step(ns, models.NoShowPenaltyPaid); err != nil {
			return err
		}

		now := s.now()
		ns.PaidAt = &now
		ns.PaidAmount = paidAmount
		ns.Notes = notes
		if err := s.bookingRepo.UpdateStatus(ctx, ns.BookingID, models.BookingNoShowPaid); err != nil {
			return err
		}

		data := datatypes.JSONMap{}
		recipient := ""
		if ns.Booking != nil {
			data = bookingData(ns.Booking, s.loc)
			recipient = customerPhone(ns.Booking)
		}
		data["noshowId"] = ns.ID
		data["paidAmount"] = paidAmount
		bookingID := ns.BookingID
		_, err := s.notifRepo.Create(ctx, &models.Notification{
			Type:         models.NotifyPenaltyPaidConfirm,
			Status:       models.NotificationPending,
			ScheduledAt:  now,
			Recipient:    recipient,
			BookingID:    &bookingID,
			DedupeKey:    dedupeKey(models.NotifyPenaltyPaidConfirm, ns.ID),
			TemplateData: data,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"noshow_id": id, "paid_amount": paidAmount}).Info("no-show penalty paid")
	return ns, nil
}

func (s *noShowService) Get(ctx context.Context, id string) (*models.NoShow, error) {
	ns, err := s.noShowRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoShowNotFound
		}
		return nil, err
	}
	return ns, nil
}

func (s *noShowService) List(ctx context.Context, filter repository.NoShowFilter) ([]models.NoShow, error) {
	return s.noShowRepo.List(ctx, filter)
}

func (s *noShowService) Stats(ctx context.Context, courseID string) (*NoShowStats, error) {
	rows, err := s.noShowRepo.SummarizeByStatus(ctx, courseID)
	if err != nil {
		return nil, err
	}
	var st NoShowStats
	for _, r := range rows {
		st.Total += r.Count
		switch r.Status {
		case models.NoShowWarningSent, models.NoShowManagerReview:
			st.Pending += r.Count
		case models.NoShowConfirmed, models.NoShowPenaltyNotified:
			st.Confirmed += r.Count
			st.PendingAmount += r.Penalty
		case models.NoShowPenaltyPaid:
			st.Paid += r.Count
			st.PaidAmount += r.Paid
		case models.NoShowWaived:
			st.Waived += r.Count
		case models.NoShowDisputed:
			st.Disputed += r.Count
		}
	}
	return &st, nil
}
