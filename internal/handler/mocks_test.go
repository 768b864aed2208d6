package handler

import (
	"context"
	"io"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/export"
	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"

	"github.com/stretchr/testify/mock"
)

type mockClientService struct{ mock.Mock }

func (m *mockClientService) ListClients(ctx context.Context, search, status string, page, limit int) ([]service.ClientResponse, int64, error) {
	args := m.Called(ctx, search, status, page, limit)
	clients, _ := args.Get(0).([]service.ClientResponse)
	return clients, args.Get(1).(int64), args.Error(2)
}

func (m *mockClientService) GetClient(ctx context.Context, id string) (service.ClientResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.ClientResponse), args.Error(1)
}

func (m *mockClientService) CreateClient(ctx context.Context, userID string, req service.ClientRequest) (service.ClientResponse, error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(service.ClientResponse), args.Error(1)
}

func (m *mockClientService) UpdateClient(ctx context.Context, userID, id string, req service.ClientRequest) (service.ClientResponse, error) {
	args := m.Called(ctx, userID, id, req)
	return args.Get(0).(service.ClientResponse), args.Error(1)
}

func (m *mockClientService) DeleteClient(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type mockLedgerService struct{ mock.Mock }

func (m *mockLedgerService) ListMileage(ctx context.Context, clientID string, q service.LedgerQuery) ([]service.MileageResponse, int64, error) {
	args := m.Called(ctx, clientID, q)
	records, _ := args.Get(0).([]service.MileageResponse)
	return records, args.Get(1).(int64), args.Error(2)
}

func (m *mockLedgerService) CreateMileage(ctx context.Context, userID, clientID string, req service.MileageRequest) (service.MileageResponse, error) {
	args := m.Called(ctx, userID, clientID, req)
	return args.Get(0).(service.MileageResponse), args.Error(1)
}

func (m *mockLedgerService) DeleteMileage(ctx context.Context, userID, clientID, id string) error {
	return m.Called(ctx, userID, clientID, id).Error(0)
}

func (m *mockLedgerService) ListFuelPurchases(ctx context.Context, clientID string, q service.LedgerQuery) ([]service.FuelPurchaseResponse, int64, error) {
	args := m.Called(ctx, clientID, q)
	purchases, _ := args.Get(0).([]service.FuelPurchaseResponse)
	return purchases, args.Get(1).(int64), args.Error(2)
}

func (m *mockLedgerService) CreateFuelPurchase(ctx context.Context, userID, clientID string, req service.FuelPurchaseRequest) (service.FuelPurchaseResponse, error) {
	args := m.Called(ctx, userID, clientID, req)
	return args.Get(0).(service.FuelPurchaseResponse), args.Error(1)
}

func (m *mockLedgerService) DeleteFuelPurchase(ctx context.Context, userID, clientID, id string) error {
	return m.Called(ctx, userID, clientID, id).Error(0)
}

type mockReportService struct{ mock.Mock }

func (m *mockReportService) GenerateReport(ctx context.Context, req service.ReportRequest) (*service.ReportResponse, error) {
	args := m.Called(ctx, req)
	report, _ := args.Get(0).(*service.ReportResponse)
	return report, args.Error(1)
}

func (m *mockReportService) ExportReport(ctx context.Context, req service.ReportRequest, format export.Format, w io.Writer) (service.ExportResult, error) {
	args := m.Called(ctx, req, format, w)
	return args.Get(0).(service.ExportResult), args.Error(1)
}

type mockTaxRateService struct{ mock.Mock }

func (m *mockTaxRateService) ListTaxRates(ctx context.Context, jurisdiction string, page, limit int) ([]service.TaxRateResponse, int64, error) {
	args := m.Called(ctx, jurisdiction, page, limit)
	rates, _ := args.Get(0).([]service.TaxRateResponse)
	return rates, args.Get(1).(int64), args.Error(2)
}

func (m *mockTaxRateService) CreateTaxRate(ctx context.Context, userID string, req service.TaxRateRequest) (service.TaxRateResponse, error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(service.TaxRateResponse), args.Error(1)
}

func (m *mockTaxRateService) UpdateTaxRate(ctx context.Context, userID, id string, req service.TaxRateRequest) (service.TaxRateResponse, error) {
	args := m.Called(ctx, userID, id, req)
	return args.Get(0).(service.TaxRateResponse), args.Error(1)
}

func (m *mockTaxRateService) DeleteTaxRate(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockTaxRateService) GetActiveTaxRate(ctx context.Context, jurisdiction string, on time.Time) (*service.ActiveTaxRateResponse, error) {
	args := m.Called(ctx, jurisdiction, on)
	rate, _ := args.Get(0).(*service.ActiveTaxRateResponse)
	return rate, args.Error(1)
}

func (m *mockTaxRateService) RateTableFor(ctx context.Context, on time.Time) (ifta.RateTable, error) {
	args := m.Called(ctx, on)
	table, _ := args.Get(0).(ifta.RateTable)
	return table, args.Error(1)
}

func (m *mockTaxRateService) ImportTaxRates(ctx context.Context, userID string, reqs []service.TaxRateRequest) (int, error) {
	args := m.Called(ctx, userID, reqs)
	return args.Int(0), args.Error(1)
}

type mockUserService struct{ mock.Mock }

func (m *mockUserService) CreateUser(ctx context.Context, req service.CreateUserRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*service.UserResponse)
	return user, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
	args := m.Called(ctx, req)
	token, _ := args.Get(0).(*service.TokenResponse)
	return token, args.Error(1)
}

func (m *mockUserService) GetUserByID(ctx context.Context, id string) (*service.UserResponse, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*service.UserResponse)
	return user, args.Error(1)
}

func (m *mockUserService) ListUsers(ctx context.Context, page, limit int) ([]service.UserResponse, int64, error) {
	args := m.Called(ctx, page, limit)
	users, _ := args.Get(0).([]service.UserResponse)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id string, req service.UpdateUserRequest) (*service.UserResponse, error) {
	args := m.Called(ctx, id, req)
	user, _ := args.Get(0).(*service.UserResponse)
	return user, args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockStatisticsService struct{ mock.Mock }

func (m *mockStatisticsService) GetStatistics(ctx context.Context, clientID string, start, end time.Time) (model.LedgerStatistics, error) {
	args := m.Called(ctx, clientID, start, end)
	return args.Get(0).(model.LedgerStatistics), args.Error(1)
}
