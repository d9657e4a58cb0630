package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/middleware"
	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/labstack/echo/v4"
)

var seoul = time.FixedZone("KST", 9*3600)

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// --- Mock WebhookService ---

type mockWebhookService struct {
	handleFn func(ctx context.Context, evt service.PaymentEvent) (*service.WebhookResult, error)
}

func (m *mockWebhookService) HandlePaymentEvent(ctx context.Context, evt service.PaymentEvent) (*service.WebhookResult, error) {
	return m.handleFn(ctx, evt)
}

// --- Mock NoShowService ---

type mockNoShowService struct {
	sweepFn   func(ctx context.Context) (*service.NoShowSweepSummary, error)
	reviewFn  func(ctx context.Context, id string) (*models.NoShow, error)
	confirmFn func(ctx context.Context, id, managerID string) (*models.NoShow, error)
	waiveFn   func(ctx context.Context, id, managerID, reason string) (*models.NoShow, error)
	disputeFn func(ctx context.Context, id, reason string) (*models.NoShow, error)
	paymentFn func(ctx context.Context, id string, paidAmount int64, notes string) (*models.NoShow, error)
	getFn     func(ctx context.Context, id string) (*models.NoShow, error)
	listFn    func(ctx context.Context, filter repository.NoShowFilter) ([]models.NoShow, error)
	statsFn   func(ctx context.Context, courseID string) (*service.NoShowStats, error)
}

func (m *mockNoShowService) Sweep(ctx context.Context) (*service.NoShowSweepSummary, error) {
	return m.sweepFn(ctx)
}
func (m *mockNoShowService) Review(ctx context.Context, id string) (*models.NoShow, error) {
	return m.reviewFn(ctx, id)
}
func (m *mockNoShowService) Confirm(ctx context.Context, id, managerID string) (*models.NoShow, error) {
	return m.confirmFn(ctx, id, managerID)
}
func (m *mockNoShowService) Waive(ctx context.Context, id, managerID, reason string) (*models.NoShow, error) {
	return m.waiveFn(ctx, id, managerID, reason)
}
func (m *mockNoShowService) Dispute(ctx context.Context, id, reason string) (*models.NoShow, error) {
	return m.disputeFn(ctx, id, reason)
}
func (m *mockNoShowService) RecordPayment(ctx context.Context, id string, paidAmount int64, notes string) (*models.NoShow, error) {
	return m.paymentFn(ctx, id, paidAmount, notes)
}
func (m *mockNoShowService) Get(ctx context.Context, id string) (*models.NoShow, error) {
	return m.getFn(ctx, id)
}
func (m *mockNoShowService) List(ctx context.Context, filter repository.NoShowFilter) ([]models.NoShow, error) {
	return m.listFn(ctx, filter)
}
func (m *mockNoShowService) Stats(ctx context.Context, courseID string) (*service.NoShowStats, error) {
	return m.statsFn(ctx, courseID)
}

// --- Mock SettlementService ---

type mockSettlementService struct {
	generateFn func(ctx context.Context, period models.SettlementPeriod, start, end string, scope models.SettlementScope) (*service.GenerateResult, error)
	runFn      func(ctx context.Context) (*service.SettlementRunSummary, error)
	applyFn    func(ctx context.Context, id string, action service.SettlementAction, notes string) (*models.Settlement, error)
	getFn      func(ctx context.Context, id string) (*service.SettlementDetail, error)
	listFn     func(ctx context.Context, filter repository.SettlementFilter) ([]models.Settlement, error)
}

func (m *mockSettlementService) Generate(ctx context.Context, period models.SettlementPeriod, start, end string, scope models.SettlementScope) (*service.GenerateResult, error) {
	return m.generateFn(ctx, period, start, end, scope)
}
func (m *mockSettlementService) RunScheduled(ctx context.Context) (*service.SettlementRunSummary, error) {
	return m.runFn(ctx)
}
func (m *mockSettlementService) Apply(ctx context.Context, id string, action service.SettlementAction, notes string) (*models.Settlement, error) {
	return m.applyFn(ctx, id, action, notes)
}
func (m *mockSettlementService) Get(ctx context.Context, id string) (*service.SettlementDetail, error) {
	return m.getFn(ctx, id)
}
func (m *mockSettlementService) List(ctx context.Context, filter repository.SettlementFilter) ([]models.Settlement, error) {
	return m.listFn(ctx, filter)
}

// --- Mock NotificationService ---

type mockNotificationService struct {
	sendFn      func(ctx context.Context, id string) (*models.Notification, error)
	dispatchFn  func(ctx context.Context) (*service.BatchSummary, error)
	remindersFn func(ctx context.Context) (*service.BatchSummary, error)
}

func (m *mockNotificationService) Send(ctx context.Context, id string) (*models.Notification, error) {
	return m.sendFn(ctx, id)
}
func (m *mockNotificationService) DispatchDue(ctx context.Context) (*service.BatchSummary, error) {
	return m.dispatchFn(ctx)
}
func (m *mockNotificationService) RunReminders(ctx context.Context) (*service.BatchSummary, error) {
	return m.remindersFn(ctx)
}
