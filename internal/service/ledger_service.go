package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type MileageRequest struct {
	TripDate      string `json:"trip_date" binding:"required"` // YYYY-MM-DD
	Jurisdiction  string `json:"jurisdiction" binding:"required"`
	VehicleID     string `json:"vehicle_id"`
	Miles         string `json:"miles" binding:"required"`
	OdometerStart string `json:"odometer_start"`
	OdometerEnd   string `json:"odometer_end"`
	Notes         string `json:"notes"`
}

type MileageResponse struct {
	ID            string  `json:"id"`
	ClientID      string  `json:"client_id"`
	TripDate      string  `json:"trip_date"`
	Jurisdiction  string  `json:"jurisdiction"`
	VehicleID     string  `json:"vehicle_id"`
	Miles         string  `json:"miles"`
	OdometerStart *string `json:"odometer_start"`
	OdometerEnd   *string `json:"odometer_end"`
	Notes         string  `json:"notes"`
	CreatedAt     string  `json:"created_at"`
}

type FuelPurchaseRequest struct {
	PurchaseDate    string `json:"purchase_date" binding:"required"` // YYYY-MM-DD
	Jurisdiction    string `json:"jurisdiction" binding:"required"`
	VehicleID       string `json:"vehicle_id"`
	FuelType        string `json:"fuel_type"` // defaults to diesel
	Gallons         string `json:"gallons" binding:"required"`
	PricePerGallon  string `json:"price_per_gallon"`
	TotalCost       string `json:"total_cost"`
	TaxPaid         string `json:"tax_paid"`
	ReceiptNumber   string `json:"receipt_number" binding:"required"`
	OdometerReading string `json:"odometer_reading"`
}

type FuelPurchaseResponse struct {
	ID              string  `json:"id"`
	ClientID        string  `json:"client_id"`
	PurchaseDate    string  `json:"purchase_date"`
	Jurisdiction    string  `json:"jurisdiction"`
	VehicleID       string  `json:"vehicle_id"`
	FuelType        string  `json:"fuel_type"`
	Gallons         string  `json:"gallons"`
	PricePerGallon  string  `json:"price_per_gallon"`
	TotalCost       string  `json:"total_cost"`
	TaxPaid         string  `json:"tax_paid"`
	ReceiptNumber   string  `json:"receipt_number"`
	OdometerReading *string `json:"odometer_reading"`
	CreatedAt       string  `json:"created_at"`
}

// LedgerQuery carries the optional list filters; dates are YYYY-MM-DD.
type LedgerQuery struct {
	StartDate    string
	EndDate      string
	Jurisdiction string
	VehicleID    string
	Page         int
	Limit        int
}

type LedgerChangedEvent struct {
	ClientID string `json:"client_id"`
	Ledger   string `json:"ledger"` // mileage or fuel
	Action   string `json:"action"` // created or deleted
	RecordID string `json:"record_id"`
}

// --- Interface ---

type LedgerService interface {
	ListMileage(ctx context.Context, clientID string, q LedgerQuery) ([]MileageResponse, int64, error)
	CreateMileage(ctx context.Context, userID, clientID string, req MileageRequest) (MileageResponse, error)
	DeleteMileage(ctx context.Context, userID, clientID, id string) error
	ListFuelPurchases(ctx context.Context, clientID string, q LedgerQuery) ([]FuelPurchaseResponse, int64, error)
	CreateFuelPurchase(ctx context.Context, userID, clientID string, req FuelPurchaseRequest) (FuelPurchaseResponse, error)
	DeleteFuelPurchase(ctx context.Context, userID, clientID, id string) error
}

type ledgerService struct {
	clients   repository.ClientRepository
	mileage   repository.MileageRepository
	fuel      repository.FuelPurchaseRepository
	txManager repository.TransactionManager
	audit     auditWriter
	events    EventPublisher
}

func NewLedgerService(
	clients repository.ClientRepository,
	mileage repository.MileageRepository,
	fuel repository.FuelPurchaseRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) LedgerService {
	return &ledgerService{
		clients:   clients,
		mileage:   mileage,
		fuel:      fuel,
		txManager: txManager,
		audit:     auditWriter{repo: auditRepo},
		events:    publisherOrNoop(events),
	}
}

// --- Mileage ---

func (s *ledgerService) ListMileage(ctx context.Context, clientID string, q LedgerQuery) ([]MileageResponse, int64, error) {
	id, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, 0, err
	}
	filter, err := q.filter()
	if err != nil {
		return nil, 0, err
	}

	records, total, err := s.mileage.List(ctx, id, filter, q.Page, q.Limit)
	if err != nil {
		return nil, 0, eris.Wrap(err, "failed to fetch mileage records")
	}

	res := make([]MileageResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toMileageResponse(r))
	}
	return res, total, nil
}

func (s *ledgerService) CreateMileage(ctx context.Context, userID, clientID string, req MileageRequest) (MileageResponse, error) {
	id, err := s.requireClient(ctx, clientID)
	if err != nil {
		return MileageResponse{}, err
	}

	record, err := parseMileageRequest(req)
	if err != nil {
		return MileageResponse{}, err
	}
	record.ClientID = id

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.mileage.Create(txCtx, &record); err != nil {
			return eris.Wrap(err, "failed to create mileage record")
		}
		s.audit.write(txCtx, userID, model.ActionCreateMileage, record.ID.String(),
			record.Jurisdiction+" "+record.Miles.String()+" mi", req)
		return nil
	})
	if err != nil {
		return MileageResponse{}, err
	}

	s.events.Publish(EventLedgerChanged, LedgerChangedEvent{ClientID: clientID, Ledger: "mileage", Action: "created", RecordID: record.ID.String()})
	return toMileageResponse(record), nil
}

func (s *ledgerService) DeleteMileage(ctx context.Context, userID, clientID, id string) error {
	cid, err := s.requireClient(ctx, clientID)
	if err != nil {
		return err
	}
	recordID, err := parseID("mileage record", id)
	if err != nil {
		return err
	}

	record, err := s.mileage.FindByID(ctx, recordID)
	if err != nil {
		return notFound("mileage record", err)
	}
	if record.ClientID != cid {
		return fmt.Errorf("%w: mileage record", ErrNotFound)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.mileage.Delete(txCtx, recordID); err != nil {
			return eris.Wrap(err, "failed to delete mileage record")
		}
		s.audit.write(txCtx, userID, model.ActionDeleteMileage, id,
			record.Jurisdiction+" "+record.Miles.String()+" mi", map[string]string{"deleted_id": id})
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(EventLedgerChanged, LedgerChangedEvent{ClientID: clientID, Ledger: "mileage", Action: "deleted", RecordID: id})
	return nil
}

// --- Fuel purchases ---

func (s *ledgerService) ListFuelPurchases(ctx context.Context, clientID string, q LedgerQuery) ([]FuelPurchaseResponse, int64, error) {
	id, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, 0, err
	}
	filter, err := q.filter()
	if err != nil {
		return nil, 0, err
	}

	purchases, total, err := s.fuel.List(ctx, id, filter, q.Page, q.Limit)
	if err != nil {
		return nil, 0, eris.Wrap(err, "failed to fetch fuel purchases")
	}

	res := make([]FuelPurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, toFuelPurchaseResponse(p))
	}
	return res, total, nil
}

func (s *ledgerService) CreateFuelPurchase(ctx context.Context, userID, clientID string, req FuelPurchaseRequest) (FuelPurchaseResponse, error) {
	id, err := s.requireClient(ctx, clientID)
	if err != nil {
		return FuelPurchaseResponse{}, err
	}

	purchase, err := parseFuelPurchaseRequest(req)
	if err != nil {
		return FuelPurchaseResponse{}, err
	}
	purchase.ClientID = id

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.fuel.ReceiptExists(txCtx, id, purchase.ReceiptNumber)
		if err != nil {
			return eris.Wrap(err, "failed to check receipt")
		}
		if exists {
			return fmt.Errorf("%w: receipt '%s' is already recorded for this client", ErrConflict, purchase.ReceiptNumber)
		}

		if err := s.fuel.Create(txCtx, &purchase); err != nil {
			return eris.Wrap(err, "failed to create fuel purchase")
		}
		s.audit.write(txCtx, userID, model.ActionCreateFuelPurchase, purchase.ID.String(),
			purchase.Jurisdiction+" "+purchase.Gallons.String()+" gal", req)
		return nil
	})
	if err != nil {
		return FuelPurchaseResponse{}, err
	}

	s.events.Publish(EventLedgerChanged, LedgerChangedEvent{ClientID: clientID, Ledger: "fuel", Action: "created", RecordID: purchase.ID.String()})
	return toFuelPurchaseResponse(purchase), nil
}

func (s *ledgerService) DeleteFuelPurchase(ctx context.Context, userID, clientID, id string) error {
	cid, err := s.requireClient(ctx, clientID)
	if err != nil {
		return err
	}
	purchaseID, err := parseID("fuel purchase", id)
	if err != nil {
		return err
	}

	purchase, err := s.fuel.FindByID(ctx, purchaseID)
	if err != nil {
		return notFound("fuel purchase", err)
	}
	if purchase.ClientID != cid {
		return fmt.Errorf("%w: fuel purchase", ErrNotFound)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.fuel.Delete(txCtx, purchaseID); err != nil {
			return eris.Wrap(err, "failed to delete fuel purchase")
		}
		s.audit.write(txCtx, userID, model.ActionDeleteFuelPurchase, id,
			purchase.Jurisdiction+" "+purchase.Gallons.String()+" gal", map[string]string{"deleted_id": id, "receipt_number": purchase.ReceiptNumber})
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(EventLedgerChanged, LedgerChangedEvent{ClientID: clientID, Ledger: "fuel", Action: "deleted", RecordID: id})
	return nil
}

// --- Helpers ---

func (s *ledgerService) requireClient(ctx context.Context, clientID string) (uuid.UUID, error) {
	id, err := parseID("client", clientID)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		return uuid.Nil, notFound("client", err)
	}
	return id, nil
}

func (q LedgerQuery) filter() (repository.LedgerFilter, error) {
	f := repository.LedgerFilter{
		Jurisdiction: ifta.NormalizeJurisdiction(q.Jurisdiction),
		VehicleID:    strings.TrimSpace(q.VehicleID),
	}
	if q.StartDate != "" {
		start, err := parseDate("start_date", q.StartDate)
		if err != nil {
			return f, err
		}
		f.Start = start
	}
	if q.EndDate != "" {
		end, err := parseDate("end_date", q.EndDate)
		if err != nil {
			return f, err
		}
		f.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

// parseMileageRequest converts and validates a mileage entry; rule violations
// surface as ifta.ErrInvalidRecord.
func parseMileageRequest(req MileageRequest) (model.MileageRecord, error) {
	date, err := parseDate("trip_date", req.TripDate)
	if err != nil {
		return model.MileageRecord{}, err
	}
	miles, err := parseDecimal("miles", req.Miles, model.MilesPlaces)
	if err != nil {
		return model.MileageRecord{}, err
	}
	odoStart, err := parseOptionalDecimal("odometer_start", req.OdometerStart, model.OdometerPlaces)
	if err != nil {
		return model.MileageRecord{}, err
	}
	odoEnd, err := parseOptionalDecimal("odometer_end", req.OdometerEnd, model.OdometerPlaces)
	if err != nil {
		return model.MileageRecord{}, err
	}

	record := model.MileageRecord{
		TripDate:      date,
		Jurisdiction:  ifta.NormalizeJurisdiction(req.Jurisdiction),
		VehicleID:     strings.TrimSpace(req.VehicleID),
		Miles:         miles,
		OdometerStart: odoStart,
		OdometerEnd:   odoEnd,
		Notes:         req.Notes,
	}
	if err := toIFTAMileage(record).Validate(); err != nil {
		return model.MileageRecord{}, err
	}
	return record, nil
}

func parseFuelPurchaseRequest(req FuelPurchaseRequest) (model.FuelPurchase, error) {
	date, err := parseDate("purchase_date", req.PurchaseDate)
	if err != nil {
		return model.FuelPurchase{}, err
	}
	gallons, err := parseDecimal("gallons", req.Gallons, model.GallonsPlaces)
	if err != nil {
		return model.FuelPurchase{}, err
	}

	optional := func(field, value string, places int32) (decimal.Decimal, error) {
		if value == "" {
			return decimal.Zero, nil
		}
		return parseDecimal(field, value, places)
	}
	price, err := optional("price_per_gallon", req.PricePerGallon, model.PricePlaces)
	if err != nil {
		return model.FuelPurchase{}, err
	}
	totalCost, err := optional("total_cost", req.TotalCost, model.MoneyPlaces)
	if err != nil {
		return model.FuelPurchase{}, err
	}
	taxPaid, err := optional("tax_paid", req.TaxPaid, model.MoneyPlaces)
	if err != nil {
		return model.FuelPurchase{}, err
	}
	odometer, err := parseOptionalDecimal("odometer_reading", req.OdometerReading, model.OdometerPlaces)
	if err != nil {
		return model.FuelPurchase{}, err
	}

	fuelType := strings.ToLower(strings.TrimSpace(req.FuelType))
	if fuelType == "" {
		fuelType = model.FuelTypeDiesel
	}
	if !model.IsValidFuelType(fuelType) {
		return model.FuelPurchase{}, validationf("invalid fuel_type '%s'", req.FuelType)
	}

	receipt := strings.TrimSpace(req.ReceiptNumber)
	if receipt == "" {
		return model.FuelPurchase{}, validationf("receipt_number is required")
	}
	if totalCost.IsZero() && !price.IsZero() {
		totalCost = price.Mul(gallons).Round(model.MoneyPlaces)
	}

	purchase := model.FuelPurchase{
		PurchaseDate:    date,
		Jurisdiction:    ifta.NormalizeJurisdiction(req.Jurisdiction),
		VehicleID:       strings.TrimSpace(req.VehicleID),
		FuelType:        fuelType,
		Gallons:         gallons,
		PricePerGallon:  price,
		TotalCost:       totalCost,
		TaxPaid:         taxPaid,
		ReceiptNumber:   receipt,
		OdometerReading: odometer,
	}
	if err := toIFTAFuel(purchase).Validate(); err != nil {
		return model.FuelPurchase{}, err
	}
	return purchase, nil
}

func toIFTAMileage(r model.MileageRecord) ifta.Mileage {
	return ifta.Mileage{
		Date:          r.TripDate,
		Jurisdiction:  r.Jurisdiction,
		VehicleID:     r.VehicleID,
		Miles:         r.Miles,
		OdometerStart: nullPtr(r.OdometerStart),
		OdometerEnd:   nullPtr(r.OdometerEnd),
	}
}

func toIFTAFuel(p model.FuelPurchase) ifta.FuelPurchase {
	return ifta.FuelPurchase{
		Date:          p.PurchaseDate,
		Jurisdiction:  p.Jurisdiction,
		VehicleID:     p.VehicleID,
		Gallons:       p.Gallons,
		TaxPaid:       p.TaxPaid,
		ReceiptNumber: p.ReceiptNumber,
	}
}

func toMileageResponse(r model.MileageRecord) MileageResponse {
	return MileageResponse{
		ID:            r.ID.String(),
		ClientID:      r.ClientID.String(),
		TripDate:      r.TripDate.Format(dateLayout),
		Jurisdiction:  r.Jurisdiction,
		VehicleID:     r.VehicleID,
		Miles:         r.Miles.StringFixed(2),
		OdometerStart: nullString(r.OdometerStart, 1),
		OdometerEnd:   nullString(r.OdometerEnd, 1),
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}

func toFuelPurchaseResponse(p model.FuelPurchase) FuelPurchaseResponse {
	return FuelPurchaseResponse{
		ID:              p.ID.String(),
		ClientID:        p.ClientID.String(),
		PurchaseDate:    p.PurchaseDate.Format(dateLayout),
		Jurisdiction:    p.Jurisdiction,
		VehicleID:       p.VehicleID,
		FuelType:        p.FuelType,
		Gallons:         p.Gallons.StringFixed(3),
		PricePerGallon:  p.PricePerGallon.StringFixed(4),
		TotalCost:       p.TotalCost.StringFixed(2),
		TaxPaid:         p.TaxPaid.StringFixed(2),
		ReceiptNumber:   p.ReceiptNumber,
		OdometerReading: nullString(p.OdometerReading, 1),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}
