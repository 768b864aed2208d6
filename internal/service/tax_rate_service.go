package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/ratefile"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// --- DTOs ---

type TaxRateRequest struct {
	Jurisdiction   string `json:"jurisdiction" binding:"required"`
	CentsPerGallon string `json:"cents_per_gallon" binding:"required"` // Decimal string, e.g. "51.1"
	EffectiveFrom  string `json:"effective_from" binding:"required"`   // YYYY-MM-DD
	EffectiveTo    string `json:"effective_to"`                        // YYYY-MM-DD, empty = open ended
	Description    string `json:"description"`
}

type TaxRateResponse struct {
	ID             string  `json:"id"`
	Jurisdiction   string  `json:"jurisdiction"`
	CentsPerGallon string  `json:"cents_per_gallon"`
	EffectiveFrom  string  `json:"effective_from"`
	EffectiveTo    *string `json:"effective_to"`
	Description    string  `json:"description"`
	CreatedAt      string  `json:"created_at"`
}

// ActiveTaxRateResponse is returned as nil when no rate is in effect.
type ActiveTaxRateResponse struct {
	Jurisdiction   string `json:"jurisdiction"`
	CentsPerGallon string `json:"cents_per_gallon"`
	RateID         string `json:"rate_id"`
	EffectiveFrom  string `json:"effective_from"`
}

// --- Interface ---

type TaxRateService interface {
	ListTaxRates(ctx context.Context, jurisdiction string, page, limit int) ([]TaxRateResponse, int64, error)
	CreateTaxRate(ctx context.Context, userID string, req TaxRateRequest) (TaxRateResponse, error)
	UpdateTaxRate(ctx context.Context, userID, id string, req TaxRateRequest) (TaxRateResponse, error)
	DeleteTaxRate(ctx context.Context, userID, id string) error
	GetActiveTaxRate(ctx context.Context, jurisdiction string, on time.Time) (*ActiveTaxRateResponse, error)
	RateTableFor(ctx context.Context, on time.Time) (ifta.RateTable, error)
	ImportTaxRates(ctx context.Context, userID string, reqs []TaxRateRequest) (int, error)
}

type taxRateService struct {
	repo      repository.TaxRateRepository
	txManager repository.TransactionManager
	audit     auditWriter
	events    EventPublisher
}

func NewTaxRateService(
	repo repository.TaxRateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) TaxRateService {
	return &taxRateService{
		repo:      repo,
		txManager: txManager,
		audit:     auditWriter{repo: auditRepo},
		events:    publisherOrNoop(events),
	}
}

// --- Implementation ---

func (s *taxRateService) ListTaxRates(ctx context.Context, jurisdiction string, page, limit int) ([]TaxRateResponse, int64, error) {
	rates, total, err := s.repo.List(ctx, ifta.NormalizeJurisdiction(jurisdiction), page, limit)
	if err != nil {
		return nil, 0, eris.Wrap(err, "failed to fetch tax rates")
	}

	res := make([]TaxRateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, toTaxRateResponse(r))
	}
	return res, total, nil
}

func (s *taxRateService) CreateTaxRate(ctx context.Context, userID string, req TaxRateRequest) (TaxRateResponse, error) {
	rate, err := parseTaxRateRequest(req)
	if err != nil {
		return TaxRateResponse{}, err
	}

	if err := s.checkOverlap(ctx, rate.Jurisdiction, rate.EffectiveFrom, rate.EffectiveTo, nil); err != nil {
		return TaxRateResponse{}, err
	}

	if err := s.repo.Create(ctx, &rate); err != nil {
		return TaxRateResponse{}, eris.Wrap(err, "failed to create tax rate")
	}

	s.audit.write(ctx, userID, model.ActionCreateTaxRate, rate.ID.String(), rate.Jurisdiction+" "+rate.CentsPerGallon.StringFixed(2), req)
	s.events.Publish(EventRatesChanged, map[string]string{"jurisdiction": rate.Jurisdiction})

	return toTaxRateResponse(rate), nil
}

func (s *taxRateService) UpdateTaxRate(ctx context.Context, userID, id string, req TaxRateRequest) (TaxRateResponse, error) {
	rateID, err := parseID("tax rate", id)
	if err != nil {
		return TaxRateResponse{}, err
	}

	existing, err := s.repo.FindByID(ctx, rateID)
	if err != nil {
		return TaxRateResponse{}, notFound("tax rate", err)
	}

	updated, err := parseTaxRateRequest(req)
	if err != nil {
		return TaxRateResponse{}, err
	}

	if err := s.checkOverlap(ctx, updated.Jurisdiction, updated.EffectiveFrom, updated.EffectiveTo, &rateID); err != nil {
		return TaxRateResponse{}, err
	}

	existing.Jurisdiction = updated.Jurisdiction
	existing.CentsPerGallon = updated.CentsPerGallon
	existing.EffectiveFrom = updated.EffectiveFrom
	existing.EffectiveTo = updated.EffectiveTo
	existing.Description = updated.Description

	if err := s.repo.Update(ctx, existing); err != nil {
		return TaxRateResponse{}, eris.Wrap(err, "failed to update tax rate")
	}

	s.audit.write(ctx, userID, model.ActionUpdateTaxRate, existing.ID.String(), existing.Jurisdiction+" "+existing.CentsPerGallon.StringFixed(2), req)
	s.events.Publish(EventRatesChanged, map[string]string{"jurisdiction": existing.Jurisdiction})

	return toTaxRateResponse(*existing), nil
}

func (s *taxRateService) DeleteTaxRate(ctx context.Context, userID, id string) error {
	rateID, err := parseID("tax rate", id)
	if err != nil {
		return err
	}

	rate, err := s.repo.FindByID(ctx, rateID)
	if err != nil {
		return notFound("tax rate", err)
	}

	if err := s.repo.Delete(ctx, rateID); err != nil {
		return eris.Wrap(err, "failed to delete tax rate")
	}

	s.audit.write(ctx, userID, model.ActionDeleteTaxRate, rate.ID.String(), rate.Jurisdiction+" "+rate.CentsPerGallon.StringFixed(2), map[string]string{"deleted_id": id})
	s.events.Publish(EventRatesChanged, map[string]string{"jurisdiction": rate.Jurisdiction})

	return nil
}

func (s *taxRateService) GetActiveTaxRate(ctx context.Context, jurisdiction string, on time.Time) (*ActiveTaxRateResponse, error) {
	code := ifta.NormalizeJurisdiction(jurisdiction)
	if !ifta.IsKnownJurisdiction(code) {
		return nil, validationf("unknown jurisdiction '%s'", jurisdiction)
	}

	rate, err := s.repo.FindActive(ctx, code, on)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no active rate is not an error
		}
		return nil, eris.Wrap(err, "failed to query active tax rate")
	}

	return &ActiveTaxRateResponse{
		Jurisdiction:   rate.Jurisdiction,
		CentsPerGallon: rate.CentsPerGallon.StringFixed(4),
		RateID:         rate.ID.String(),
		EffectiveFrom:  rate.EffectiveFrom.Format(dateLayout),
	}, nil
}

// RateTableFor returns the rates in effect on a date as an ifta.RateLookup.
func (s *taxRateService) RateTableFor(ctx context.Context, on time.Time) (ifta.RateTable, error) {
	rates, err := s.repo.FindAllActive(ctx, on)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load tax rates")
	}

	return rateTable(rates)
}

// ImportTaxRates creates a whole rate schedule atomically: one overlapping or
// malformed entry rejects the batch.
func (s *taxRateService) ImportTaxRates(ctx context.Context, userID string, reqs []TaxRateRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, validationf("no tax rates to import")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i, req := range reqs {
			rate, err := parseTaxRateRequest(req)
			if err != nil {
				return fmt.Errorf("rate %d (%s): %w", i+1, req.Jurisdiction, err)
			}
			if err := s.checkOverlap(txCtx, rate.Jurisdiction, rate.EffectiveFrom, rate.EffectiveTo, nil); err != nil {
				return fmt.Errorf("rate %d: %w", i+1, err)
			}
			if err := s.repo.Create(txCtx, &rate); err != nil {
				return eris.Wrapf(err, "failed to create tax rate %d", i+1)
			}
		}
		s.audit.write(txCtx, userID, model.ActionImportTaxRates, "", fmt.Sprintf("%d rates", len(reqs)), reqs)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.events.Publish(EventRatesChanged, map[string]int{"imported": len(reqs)})
	return len(reqs), nil
}

// --- Helpers ---

func parseTaxRateRequest(req TaxRateRequest) (model.TaxRate, error) {
	cents, err := parseDecimal("cents_per_gallon", req.CentsPerGallon, model.CentsPerGallonPlaces)
	if err != nil {
		return model.TaxRate{}, err
	}
	from, err := parseDate("effective_from", req.EffectiveFrom)
	if err != nil {
		return model.TaxRate{}, err
	}
	to, err := parseOptionalDate("effective_to", req.EffectiveTo)
	if err != nil {
		return model.TaxRate{}, err
	}
	if to != nil && to.Before(from) {
		return model.TaxRate{}, validationf("effective_to must not be before effective_from")
	}

	code := ifta.NormalizeJurisdiction(req.Jurisdiction)
	if err := (ifta.Rate{Jurisdiction: code, CentsPerGallon: cents, EffectiveFrom: from}).Validate(); err != nil {
		return model.TaxRate{}, err
	}

	return model.TaxRate{
		Jurisdiction:   code,
		CentsPerGallon: cents,
		EffectiveFrom:  from,
		EffectiveTo:    to,
		Description:    req.Description,
	}, nil
}

func (s *taxRateService) checkOverlap(ctx context.Context, jurisdiction string, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, jurisdiction, from, to, excludeID)
	if err != nil {
		return eris.Wrap(err, "failed to check overlap")
	}
	if count > 0 {
		return fmt.Errorf("%w: a tax rate for '%s' already exists with overlapping effective dates", ErrConflict, jurisdiction)
	}
	return nil
}

func toTaxRateResponse(r model.TaxRate) TaxRateResponse {
	resp := TaxRateResponse{
		ID:             r.ID.String(),
		Jurisdiction:   r.Jurisdiction,
		CentsPerGallon: r.CentsPerGallon.StringFixed(4),
		EffectiveFrom:  r.EffectiveFrom.Format(dateLayout),
		Description:    r.Description,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &s
	}
	return resp
}

// ScheduleRequests turns a parsed rate file into import requests.
func ScheduleRequests(schedule *ratefile.Schedule) []TaxRateRequest {
	reqs := make([]TaxRateRequest, 0, len(schedule.Entries))
	for _, e := range schedule.Entries {
		req := TaxRateRequest{
			Jurisdiction:   e.Jurisdiction,
			CentsPerGallon: e.CentsPerGallon.String(),
			EffectiveFrom:  e.EffectiveFrom.Format(dateLayout),
			Description:    e.Description,
		}
		if e.EffectiveTo != nil {
			req.EffectiveTo = e.EffectiveTo.Format(dateLayout)
		}
		reqs = append(reqs, req)
	}
	return reqs
}
