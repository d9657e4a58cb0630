package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SettlementAction string

const (
	ActionConfirm     SettlementAction = "confirm"
	ActionTransfer    SettlementAction = "transfer"
	ActionComplete    SettlementAction = "complete"
	ActionRecalculate SettlementAction = "recalculate"
)

var settledNoShowStatuses = []models.NoShowStatus{
	models.NoShowConfirmed,
	models.NoShowPenaltyNotified,
	models.NoShowPenaltyPaid,
}

type GenerateResult struct {
	ID            string                  `json:"id"`
	Period        models.SettlementPeriod `json:"period"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	Created       bool                    `json:"created"`
	Recalculated  bool                    `json:"recalculated"`
	TotalBookings int                     `json:"total_bookings"`
}

type SettlementRunSummary struct {
	BatchSummary
	Settlements []GenerateResult `json:"settlements"`
}

// Breakdown is one group of a settlement's items.
type Breakdown struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Bookings   int    `json:"bookings"`
	Amount     int64  `json:"amount"`
	PGFee      int64  `json:"pg_fee"`
	Commission int64  `json:"commission"`
	VAT        int64  `json:"vat"`
	NetAmount  int64  `json:"net_amount"`
}

type SettlementDetail struct {
	Settlement *models.Settlement            `json:"settlement"`
	Items      []models.SettlementItem       `json:"items"`
	NoShows    []models.SettlementNoShowLine `json:"noshows"`
	ByDate     []Breakdown                   `json:"by_date"`
	ByCourse   []Breakdown                   `json:"by_course"`
	ByManager  []Breakdown                   `json:"by_manager"`
}

type SettlementService interface {
	// Generate creates the settlement for a period and scope once. A PENDING
	// settlement for the same key is recomputed in place.
	Generate(ctx context.Context, period models.SettlementPeriod, start, end string, scope models.SettlementScope) (*GenerateResult, error)
	RunScheduled(ctx context.Context) (*SettlementRunSummary, error)
	Apply(ctx context.Context, id string, action SettlementAction, notes string) (*models.Settlement, error)
	Get(ctx context.Context, id string) (*SettlementDetail, error)
	List(ctx context.Context, filter repository.SettlementFilter) ([]models.Settlement, error)
}

type settlementService struct {
	tx             repository.Transactor
	settlementRepo repository.SettlementRepository
	bookingRepo    repository.BookingRepository
	noShowRepo     repository.NoShowRepository
	notifRepo      repository.NotificationRepository
	policy         SettlementPolicy
	loc            *time.Location
	now            func() time.Time
	log            *logrus.Entry
}

func NewSettlementService(
	tx repository.Transactor,
	settlementRepo repository.SettlementRepository,
	bookingRepo repository.BookingRepository,
	noShowRepo repository.NoShowRepository,
	notifRepo repository.NotificationRepository,
	policy SettlementPolicy,
	loc *time.Location,
) SettlementService {
	return &settlementService{
		tx:             tx,
		settlementRepo: settlementRepo,
		bookingRepo:    bookingRepo,
		noShowRepo:     noShowRepo,
		notifRepo:      notifRepo,
		policy:         policy,
		loc:            loc,
		now:            time.Now,
		log:            logrus.WithField("component", "settlement"),
	}
}

func (s *settlementService) Generate(ctx context.Context, period models.SettlementPeriod, start, end string, scope models.SettlementScope) (*GenerateResult, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if _, _, err := dateBounds(start, end, s.loc); err != nil {
		return nil, err
	}

	existing, err := s.settlementRepo.FindByKey(ctx, period, start, end, scope.Key())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.resume(ctx, existing)
	}

	st := &models.Settlement{
		Period:    period,
		StartDate: start,
		EndDate:   end,
		ScopeKey:  scope.Key(),
		Status:    models.SettlementPending,
	}
	if scope.CourseID != "" {
		st.CourseID = &scope.CourseID
	}
	if scope.ManagerID != "" {
		st.ManagerID = &scope.ManagerID
	}
	if err := s.settlementRepo.Create(ctx, st); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Lost the race to a concurrent run; continue with its row.
		existing, err := s.settlementRepo.FindByKey(ctx, period, start, end, scope.Key())
		if err != nil {
			return nil, err
		}
		return s.resume(ctx, existing)
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.recompute(ctx, st.ID)
	}); err != nil {
		return nil, err
	}
	return s.result(ctx, st.ID, true, false)
}

// resume returns an existing settlement, recomputing it first when it is
// still PENDING.
func (s *settlementService) resume(ctx context.Context, st *models.Settlement) (*GenerateResult, error) {
	if st.Status != models.SettlementPending {
		return toResult(st, false, false), nil
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.recompute(ctx, st.ID)
	}); err != nil {
		return nil, err
	}
	return s.result(ctx, st.ID, false, true)
}

func (s *settlementService) result(ctx context.Context, id string, created, recalculated bool) (*GenerateResult, error) {
	st, err := s.settlementRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResult(st, created, recalculated), nil
}

func toResult(st *models.Settlement, created, recalculated bool) *GenerateResult {
	return &GenerateResult{
		ID:            st.ID,
		Period:        st.Period,
		StartDate:     st.StartDate,
		EndDate:       st.EndDate,
		Created:       created,
		Recalculated:  recalculated,
		TotalBookings: st.TotalBookings,
	}
}

// recompute aggregates a PENDING settlement and moves it to CALCULATED. It
// must run inside a transaction. A settlement that is no longer PENDING is
// left alone.
func (s *settlementService) recompute(ctx context.Context, id string) error {
	st, err := s.settlementRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if st.Status != models.SettlementPending {
		return nil
	}

	from, to, err := dateBounds(st.StartDate, st.EndDate, s.loc)
	if err != nil {
		return err
	}
	scope := st.Scope()

	bookings, err := s.bookingRepo.FindForSettlement(ctx, from, to, models.SettleableBookingStatuses, scope)
	if err != nil {
		return err
	}
	refunds, err := s.bookingRepo.FindForSettlement(ctx, from, to, models.RefundedBookingStatuses, scope)
	if err != nil {
		return err
	}
	noShows, err := s.noShowRepo.FindForSettlement(ctx, from, to, settledNoShowStatuses, scope)
	if err != nil {
		return err
	}

	resetTotals(st)
	items := make([]models.SettlementItem, 0, len(bookings))
	managers := make(map[string]*models.Manager)
	for i := range bookings {
		b := &bookings[i]
		item := s.item(st.ID, b)
		items = append(items, item)

		st.TotalBookings++
		st.TotalAmount += item.BookingAmount
		st.TotalPGFee += item.PGFee
		st.TotalCommission += item.Commission
		st.TotalVAT += item.VAT
		st.TotalNetAmount += item.NetAmount

		if b.TeeTime != nil && b.TeeTime.Manager != nil {
			managers[b.TeeTime.ManagerID] = b.TeeTime.Manager
		}
	}

	for _, b := range refunds {
		st.RefundCount++
		st.RefundAmount += b.Amount
	}

	lines := noShowLines(st.ID, noShows)
	for _, l := range lines {
		st.NoShowCount += l.Count
		st.NoShowPenalty += l.Penalty
		st.NoShowPaidPenalty += l.PaidPenalty
	}

	if err := s.settlementRepo.ReplaceLines(ctx, st.ID, items, lines); err != nil {
		return err
	}

	if !models.CanTransitionSettlement(st.Status, models.SettlementCalculated) {
		return &TransitionError{Entity: "settlement", From: string(st.Status), To: string(models.SettlementCalculated)}
	}
	now := s.now()
	st.Status = models.SettlementCalculated
	st.CalculatedAt = &now
	if err := s.settlementRepo.Save(ctx, st); err != nil {
		return err
	}

	if st.Period == models.PeriodDaily && st.TotalBookings > 0 {
		if err := s.notifyManagers(ctx, st, items, managers, now); err != nil {
			return err
		}
	}

	s.log.WithFields(logrus.Fields{
		"settlement_id": st.ID,
		"period":        st.Period,
		"start":         st.StartDate,
		"end":           st.EndDate,
		"bookings":      st.TotalBookings,
		"net":           st.TotalNetAmount,
	}).Info("settlement calculated")
	return nil
}

func resetTotals(st *models.Settlement) {
	st.TotalBookings, st.TotalAmount, st.TotalPGFee = 0, 0, 0
	st.TotalCommission, st.TotalVAT, st.TotalNetAmount = 0, 0, 0
	st.RefundCount, st.RefundAmount = 0, 0
	st.NoShowCount, st.NoShowPenalty, st.NoShowPaidPenalty = 0, 0, 0
}

func (s *settlementService) item(settlementID string, b *models.Booking) models.SettlementItem {
	fees := s.policy.Fees(b.Amount)
	item := models.SettlementItem{
		SettlementID:  settlementID,
		BookingID:     b.ID,
		BookingAmount: b.Amount,
		PGFee:         fees.PGFee,
		Commission:    fees.Commission,
		VAT:           fees.VAT,
		NetAmount:     fees.Net,
		BookingStatus: b.Status,
	}
	if tt := b.TeeTime; tt != nil {
		item.CourseID = tt.CourseID
		item.ManagerID = tt.ManagerID
		item.TeeDate = tt.LocalDate(s.loc)
		item.TeeTime = tt.LocalTime(s.loc)
		if tt.Course != nil {
			item.CourseName = tt.Course.Name
		}
		if tt.Manager != nil {
			item.ManagerName = tt.Manager.Name
		}
	}
	return item
}

func noShowLines(settlementID string, noShows []models.NoShow) []models.SettlementNoShowLine {
	byCourse := make(map[string]*models.SettlementNoShowLine)
	var order []string
	for _, ns := range noShows {
		line, ok := byCourse[ns.CourseID]
		if !ok {
			line = &models.SettlementNoShowLine{SettlementID: settlementID, CourseID: ns.CourseID}
			if ns.Booking != nil && ns.Booking.TeeTime != nil && ns.Booking.TeeTime.Course != nil {
				line.CourseName = ns.Booking.TeeTime.Course.Name
			}
			byCourse[ns.CourseID] = line
			order = append(order, ns.CourseID)
		}
		line.Count++
		line.Penalty += ns.PenaltyAmount
		if ns.Status == models.NoShowPenaltyPaid {
			line.PaidPenalty += ns.PaidAmount
		}
	}
	out := make([]models.SettlementNoShowLine, 0, len(order))
	for _, id := range order {
		out = append(out, *byCourse[id])
	}
	return out
}

// notifyManagers enqueues one settlement-ready message per manager with
// bookings in the settlement.
func (s *settlementService) notifyManagers(ctx context.Context, st *models.Settlement, items []models.SettlementItem, managers map[string]*models.Manager, now time.Time) error {
	type share struct {
		bookings int
		net      int64
	}
	shares := make(map[string]*share)
	for _, it := range items {
		sh, ok := shares[it.ManagerID]
		if !ok {
			sh = &share{}
			shares[it.ManagerID] = sh
		}
		sh.bookings++
		sh.net += it.NetAmount
	}

	ids := make([]string, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		recipient := ""
		if m := managers[id]; m != nil {
			recipient = m.Phone
		}
		sh := shares[id]
		if _, err := s.notifRepo.Create(ctx, &models.Notification{
			Type:        models.NotifySettlementReady,
			Status:      models.NotificationPending,
			ScheduledAt: now,
			Recipient:   recipient,
			DedupeKey:   dedupeKey(models.NotifySettlementReady, st.ID, id),
			TemplateData: datatypes.JSONMap{
				"settlementId":  st.ID,
				"managerId":     id,
				"period":        string(st.Period),
				"startDate":     st.StartDate,
				"endDate":       st.EndDate,
				"totalBookings": sh.bookings,
				"netAmount":     sh.net,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *settlementService) RunScheduled(ctx context.Context) (*SettlementRunSummary, error) {
	sum := &SettlementRunSummary{BatchSummary: newBatchSummary(), Settlements: []GenerateResult{}}

	stuck, err := s.settlementRepo.FindByStatus(ctx, models.SettlementPending)
	if err != nil {
		return nil, err
	}
	for _, st := range stuck {
		sum.Checked++
		res, err := s.resume(ctx, &st)
		if err != nil {
			sum.fail(s.log, st.ID, err)
			continue
		}
		sum.Updated++
		sum.Settlements = append(sum.Settlements, *res)
	}

	now := s.now()
	for _, period := range []models.SettlementPeriod{models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly} {
		start, end, due := PeriodRange(period, now, s.loc)
		if !due {
			continue
		}
		sum.Checked++
		res, err := s.Generate(ctx, period, start, end, models.SettlementScope{})
		switch {
		case err != nil:
			sum.fail(s.log, fmt.Sprintf("%s %s~%s", period, start, end), err)
			continue
		case res.Created:
			sum.Created++
		case res.Recalculated:
			sum.Updated++
		default:
			sum.Skipped++
		}
		sum.Settlements = append(sum.Settlements, *res)
	}

	s.log.WithFields(logrus.Fields{
		"checked": sum.Checked,
		"created": sum.Created,
		"failed":  sum.Failed,
	}).Info("settlement run finished")
	return sum, nil
}

func (s *settlementService) Apply(ctx context.Context, id string, action SettlementAction, notes string) (*models.Settlement, error) {
	var target models.SettlementStatus
	switch action {
	case ActionConfirm:
		target = models.SettlementConfirmed
	case ActionTransfer:
		target = models.SettlementTransferred
	case ActionComplete:
		target = models.SettlementCompleted
	case ActionRecalculate:
		target = models.SettlementPending
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.settlementRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSettlementNotFound
			}
			return err
		}
		if !models.CanTransitionSettlement(st.Status, target) {
			return &TransitionError{Entity: "settlement", From: string(st.Status), To: string(target)}
		}

		now := s.now()
		st.Status = target
		if notes != "" {
			st.Notes = notes
		}
		switch target {
		case models.SettlementConfirmed:
			st.ConfirmedAt = &now
		case models.SettlementTransferred:
			st.TransferredAt = &now
		case models.SettlementCompleted:
			st.CompletedAt = &now
		case models.SettlementPending:
			st.ConfirmedAt = nil
			st.CalculatedAt = nil
		}
		if err := s.settlementRepo.Save(ctx, st); err != nil {
			return err
		}
		if target == models.SettlementPending {
			return s.recompute(ctx, st.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"settlement_id": id, "action": action}).Info("settlement action applied")
	return s.settlementRepo.FindByID(ctx, id)
}

func (s *settlementService) Get(ctx context.Context, id string) (*SettlementDetail, error) {
	st, err := s.settlementRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}
	items, err := s.settlementRepo.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.settlementRepo.FindNoShowLines(ctx, id)
	if err != nil {
		return nil, err
	}

	return &SettlementDetail{
		Settlement: st,
		Items:      items,
		NoShows:    lines,
		ByDate: breakdown(items, func(it *models.SettlementItem) (string, string) {
			return it.TeeDate, it.TeeDate
		}),
		ByCourse: breakdown(items, func(it *models.SettlementItem) (string, string) {
			return it.CourseID, it.CourseName
		}),
		ByManager: breakdown(items, func(it *models.SettlementItem) (string, string) {
			return it.ManagerID, it.ManagerName
		}),
	}, nil
}

func breakdown(items []models.SettlementItem, group func(*models.SettlementItem) (string, string)) []Breakdown {
	byKey := make(map[string]*Breakdown)
	for i := range items {
		it := &items[i]
		key, label := group(it)
		b, ok := byKey[key]
		if !ok {
			b = &Breakdown{Key: key, Label: label}
			byKey[key] = b
		}
		b.Bookings++
		b.Amount += it.BookingAmount
		b.PGFee += it.PGFee
		b.Commission += it.Commission
		b.VAT += it.VAT
		b.NetAmount += it.NetAmount
	}
	out := make([]Breakdown, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *settlementService) List(ctx context.Context, filter repository.SettlementFilter) ([]models.Settlement, error) {
	return s.settlementRepo.List(ctx, filter)
}
