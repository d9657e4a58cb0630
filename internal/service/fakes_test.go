package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"gorm.io/gorm"
)

var seoul = time.FixedZone("KST", 9*3600)

// --- In-memory store shared by the fake repositories ---

type store struct {
	mu            sync.Mutex
	seq           int
	courses       map[string]*models.GolfCourse
	managers      map[string]*models.Manager
	customers     map[string]*models.Customer
	teeTimes      map[string]*models.TeeTime
	bookings      map[string]*models.Booking
	noShows       map[string]*models.NoShow
	notifications []*models.Notification
	settlements   map[string]*models.Settlement
	items         map[string][]models.SettlementItem
	lines         map[string][]models.SettlementNoShowLine
	dumpingLogs   []models.DumpingLog
}

func newStore() *store {
	return &store{
		courses:     map[string]*models.GolfCourse{},
		managers:    map[string]*models.Manager{},
		customers:   map[string]*models.Customer{},
		teeTimes:    map[string]*models.TeeTime{},
		bookings:    map[string]*models.Booking{},
		noShows:     map[string]*models.NoShow{},
		settlements: map[string]*models.Settlement{},
		items:       map[string][]models.SettlementItem{},
		lines:       map[string][]models.SettlementNoShowLine{},
	}
}

func (s *store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *store) teeTime(id string) *models.TeeTime {
	tt, ok := s.teeTimes[id]
	if !ok {
		return nil
	}
	c := *tt
	c.Course = s.courses[tt.CourseID]
	c.Manager = s.managers[tt.ManagerID]
	return &c
}

func (s *store) booking(b *models.Booking) models.Booking {
	c := *b
	c.TeeTime = s.teeTime(b.TeeTimeID)
	c.Customer = s.customers[b.CustomerID]
	return c
}

func (s *store) noShow(ns *models.NoShow) models.NoShow {
	c := *ns
	if b, ok := s.bookings[ns.BookingID]; ok {
		hb := s.booking(b)
		c.Booking = &hb
	}
	return c
}

func (s *store) sortedBookings() []*models.Booking {
	out := make([]*models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func inScope(tt *models.TeeTime, scope models.SettlementScope) bool {
	if scope.CourseID != "" && tt.CourseID != scope.CourseID {
		return false
	}
	if scope.ManagerID != "" && tt.ManagerID != scope.ManagerID {
		return false
	}
	return true
}

// seedBooking adds a course, manager, customer, tee-time and booking.
func (s *store) seedBooking(startsAt time.Time, amount int64, bs models.BookingStatus, ts models.TeeTimeStatus) *models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses["course-1"]; !ok {
		s.courses["course-1"] = &models.GolfCourse{ID: "course-1", Name: "안심CC", ManagerID: "manager-1"}
		s.managers["manager-1"] = &models.Manager{ID: "manager-1", Name: "김매니저", Phone: "010-1111-2222"}
		s.customers["customer-1"] = &models.Customer{ID: "customer-1", Name: "홍길동", Phone: "010-3333-4444"}
	}
	tt := &models.TeeTime{
		ID:            s.nextID("tt"),
		CourseID:      "course-1",
		ManagerID:     "manager-1",
		StartsAt:      startsAt,
		Price:         amount,
		OriginalPrice: amount,
		BookingType:   "NORMAL",
		Status:        ts,
	}
	s.teeTimes[tt.ID] = tt
	b := &models.Booking{
		ID:         s.nextID("bk"),
		TeeTimeID:  tt.ID,
		CustomerID: "customer-1",
		Amount:     amount,
		Status:     bs,
		OrderID:    s.nextID("order"),
		UpdatedAt:  startsAt.Add(-72 * time.Hour),
	}
	s.bookings[b.ID] = b
	return b
}

func (s *store) seedTeeTime(startsAt time.Time, price int64, status models.TeeTimeStatus) *models.TeeTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt := &models.TeeTime{
		ID:            s.nextID("tt"),
		CourseID:      "course-1",
		ManagerID:     "manager-1",
		StartsAt:      startsAt,
		Price:         price,
		OriginalPrice: price,
		BookingType:   "NORMAL",
		Status:        status,
	}
	s.teeTimes[tt.ID] = tt
	return tt
}

func (s *store) notificationsOf(typ models.NotificationType) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.Type == typ {
			out = append(out, *n)
		}
	}
	return out
}

// --- Transactor ---

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- TeeTimeRepository ---

type fakeTeeTimes struct{ *store }

func (f fakeTeeTimes) FindByID(_ context.Context, id string) (*models.TeeTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tt := f.teeTime(id); tt != nil {
		return tt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeTeeTimes) FindByIDForUpdate(ctx context.Context, id string) (*models.TeeTime, error) {
	return f.FindByID(ctx, id)
}

func (f fakeTeeTimes) FindAvailableStartingBetween(_ context.Context, from, to time.Time) ([]models.TeeTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TeeTime
	for _, tt := range f.teeTimes {
		if tt.Status == models.TeeTimeAvailable && tt.StartsAt.After(from) && !tt.StartsAt.After(to) {
			out = append(out, *tt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f fakeTeeTimes) CountForCourseBetween(_ context.Context, courseID string, from, to time.Time) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, booked int64
	for _, tt := range f.teeTimes {
		if tt.CourseID != courseID || tt.Status == models.TeeTimeCanceled || tt.StartsAt.Before(from) || !tt.StartsAt.Before(to) {
			continue
		}
		total++
		if tt.Status != models.TeeTimeAvailable {
			booked++
		}
	}
	return total, booked, nil
}

func (f fakeTeeTimes) UpdatePriceIfUnchanged(_ context.Context, id string, expected, price int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.teeTimes[id]
	if !ok || tt.Status != models.TeeTimeAvailable || tt.Price != expected {
		return false, nil
	}
	tt.Price = price
	return true, nil
}

func (f fakeTeeTimes) UpdateStatus(_ context.Context, id string, status models.TeeTimeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tt, ok := f.teeTimes[id]; ok {
		tt.Status = status
	}
	return nil
}

func (f fakeTeeTimes) CreateDumpingLog(_ context.Context, log *models.DumpingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = f.nextID("dl")
	f.dumpingLogs = append(f.dumpingLogs, *log)
	return nil
}

// --- BookingRepository ---

type fakeBookings struct{ *store }

func (f fakeBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	hb := f.booking(b)
	return &hb, nil
}

func (f fakeBookings) FindByOrderIDForUpdate(_ context.Context, orderID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.OrderID == orderID {
			hb := f.booking(b)
			return &hb, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeBookings) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

func (f fakeBookings) SetPaymentKey(_ context.Context, id, paymentKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		b.PaymentKey = paymentKey
	}
	return nil
}

func (f fakeBookings) filter(keep func(b *models.Booking, tt *models.TeeTime) bool) []models.Booking {
	var out []models.Booking
	for _, b := range f.sortedBookings() {
		tt := f.teeTimes[b.TeeTimeID]
		if tt != nil && keep(b, tt) {
			out = append(out, f.booking(b))
		}
	}
	return out
}

func (f fakeBookings) FindNoShowCandidates(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(b *models.Booking, tt *models.TeeTime) bool {
		if b.Status != models.BookingConfirmed || tt.Status != models.TeeTimeConfirmed {
			return false
		}
		if !tt.StartsAt.After(from) || tt.StartsAt.After(to) {
			return false
		}
		for _, ns := range f.noShows {
			if ns.BookingID == b.ID {
				return false
			}
		}
		return true
	}), nil
}

func (f fakeBookings) FindConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(b *models.Booking, tt *models.TeeTime) bool {
		return b.Status == models.BookingConfirmed && tt.StartsAt.After(from) && !tt.StartsAt.After(to)
	}), nil
}

func (f fakeBookings) FindDepositPendingSince(_ context.Context, before time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(b *models.Booking, tt *models.TeeTime) bool {
		return b.Status == models.BookingDepositPending && !b.UpdatedAt.After(before)
	}), nil
}

func (f fakeBookings) FindForSettlement(_ context.Context, from, to time.Time, statuses []models.BookingStatus, scope models.SettlementScope) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(b *models.Booking, tt *models.TeeTime) bool {
		return containsStatus(statuses, b.Status) && !tt.StartsAt.Before(from) && tt.StartsAt.Before(to) && inScope(tt, scope)
	}), nil
}

// --- NoShowRepository ---

type fakeNoShows struct{ *store }

func (f fakeNoShows) Create(_ context.Context, ns *models.NoShow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.noShows {
		if existing.BookingID == ns.BookingID {
			return gorm.ErrDuplicatedKey
		}
	}
	if ns.ID == "" {
		ns.ID = f.nextID("ns")
	}
	c := *ns
	c.Booking = nil
	f.noShows[ns.ID] = &c
	return nil
}

func (f fakeNoShows) FindByID(_ context.Context, id string) (*models.NoShow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns, ok := f.noShows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := f.noShow(ns)
	return &c, nil
}

func (f fakeNoShows) FindByIDForUpdate(ctx context.Context, id string) (*models.NoShow, error) {
	return f.FindByID(ctx, id)
}

func (f fakeNoShows) FindConfirmedUnnotified(_ context.Context) ([]models.NoShow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NoShow
	for _, ns := range f.noShows {
		if ns.Status == models.NoShowConfirmed && ns.NotifiedAt == nil {
			out = append(out, *ns)
		}
	}
	return out, nil
}

func (f fakeNoShows) Save(_ context.Context, ns *models.NoShow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *ns
	c.Booking = nil
	f.noShows[ns.ID] = &c
	return nil
}

func (f fakeNoShows) List(_ context.Context, filter repository.NoShowFilter) ([]models.NoShow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NoShow
	for _, ns := range f.noShows {
		if filter.Status != "" && ns.Status != filter.Status {
			continue
		}
		if filter.CourseID != "" && ns.CourseID != filter.CourseID {
			continue
		}
		out = append(out, f.noShow(ns))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeNoShows) SummarizeByStatus(_ context.Context, courseID string) ([]repository.NoShowStatusSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byStatus := map[models.NoShowStatus]*repository.NoShowStatusSummary{}
	for _, ns := range f.noShows {
		if courseID != "" && ns.CourseID != courseID {
			continue
		}
		row, ok := byStatus[ns.Status]
		if !ok {
			row = &repository.NoShowStatusSummary{Status: ns.Status}
			byStatus[ns.Status] = row
		}
		row.Count++
		row.Penalty += ns.PenaltyAmount
		row.Paid += ns.PaidAmount
	}
	var out []repository.NoShowStatusSummary
	for _, r := range byStatus {
		out = append(out, *r)
	}
	return out, nil
}

func (f fakeNoShows) FindForSettlement(_ context.Context, from, to time.Time, statuses []models.NoShowStatus, scope models.SettlementScope) ([]models.NoShow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NoShow
	for _, ns := range f.noShows {
		tt := f.teeTimes[ns.TeeTimeID]
		if tt == nil || tt.StartsAt.Before(from) || !tt.StartsAt.Before(to) || !inScope(tt, scope) {
			continue
		}
		for _, s := range statuses {
			if ns.Status == s {
				out = append(out, f.noShow(ns))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- NotificationRepository ---

type fakeNotifications struct{ *store }

func (f fakeNotifications) Create(_ context.Context, n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.DedupeKey != nil {
		for _, existing := range f.notifications {
			if existing.DedupeKey != nil && *existing.DedupeKey == *n.DedupeKey {
				return false, nil
			}
		}
	}
	n.ID = f.nextID("nt")
	c := *n
	f.notifications = append(f.notifications, &c)
	return true, nil
}

func (f fakeNotifications) find(id string) *models.Notification {
	for _, n := range f.notifications {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (f fakeNotifications) FindByID(_ context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.find(id); n != nil {
		c := *n
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeNotifications) FindDue(_ context.Context, now time.Time, maxAttempts, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if n.ScheduledAt.After(now) {
			continue
		}
		if n.Status == models.NotificationPending || (n.Status == models.NotificationFailed && n.Attempts < maxAttempts) {
			out = append(out, *n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func sendableStatus(s models.NotificationStatus) bool {
	return s == models.NotificationPending || s == models.NotificationFailed
}

func (f fakeNotifications) MarkSent(_ context.Context, id, messageID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.find(id)
	if n == nil || !sendableStatus(n.Status) {
		return false, nil
	}
	n.Status = models.NotificationSent
	n.MessageID = messageID
	n.SentAt = &at
	n.Attempts++
	n.LastError = ""
	return true, nil
}

func (f fakeNotifications) MarkFailed(_ context.Context, id, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.find(id)
	if n == nil || !sendableStatus(n.Status) {
		return false, nil
	}
	n.Status = models.NotificationFailed
	n.Attempts++
	n.LastError = reason
	return true, nil
}

func (f fakeNotifications) CancelPendingForBooking(_ context.Context, bookingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, nt := range f.notifications {
		if nt.BookingID != nil && *nt.BookingID == bookingID && sendableStatus(nt.Status) {
			nt.Status = models.NotificationCanceled
			n++
		}
	}
	return n, nil
}

// --- SettlementRepository ---

type fakeSettlements struct{ *store }

func (f fakeSettlements) Create(_ context.Context, st *models.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.settlements {
		if existing.Period == st.Period && existing.StartDate == st.StartDate &&
			existing.EndDate == st.EndDate && existing.ScopeKey == st.ScopeKey {
			return gorm.ErrDuplicatedKey
		}
	}
	st.ID = f.nextID("st")
	c := *st
	f.settlements[st.ID] = &c
	return nil
}

func (f fakeSettlements) FindByKey(_ context.Context, period models.SettlementPeriod, start, end, scopeKey string) (*models.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.settlements {
		if st.Period == period && st.StartDate == start && st.EndDate == end && st.ScopeKey == scopeKey {
			c := *st
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeSettlements) FindByID(_ context.Context, id string) (*models.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.settlements[id]; ok {
		c := *st
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeSettlements) FindByIDForUpdate(ctx context.Context, id string) (*models.Settlement, error) {
	return f.FindByID(ctx, id)
}

func (f fakeSettlements) FindByStatus(_ context.Context, status models.SettlementStatus) ([]models.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Settlement
	for _, st := range f.settlements {
		if st.Status == status {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (f fakeSettlements) List(_ context.Context, filter repository.SettlementFilter) ([]models.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Settlement
	for _, st := range f.settlements {
		if filter.Period != "" && st.Period != filter.Period {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate > out[j].StartDate })
	return out, nil
}

func (f fakeSettlements) Save(_ context.Context, st *models.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *st
	f.settlements[st.ID] = &c
	return nil
}

func (f fakeSettlements) ReplaceLines(_ context.Context, settlementID string, items []models.SettlementItem, noShows []models.SettlementNoShowLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[settlementID] = append([]models.SettlementItem(nil), items...)
	f.lines[settlementID] = append([]models.SettlementNoShowLine(nil), noShows...)
	return nil
}

func (f fakeSettlements) FindItems(_ context.Context, settlementID string) ([]models.SettlementItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SettlementItem(nil), f.items[settlementID]...), nil
}

func (f fakeSettlements) FindNoShowLines(_ context.Context, settlementID string) ([]models.SettlementNoShowLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SettlementNoShowLine(nil), f.lines[settlementID]...), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
