package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/export"
	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// --- DTOs ---

type ReportRequest struct {
	ClientID string
	Year     int
	Quarter  int
	Strategy string // fleet, jurisdiction or vehicle; empty uses the configured default
}

// CalculationResponse is one jurisdiction row. Figures that could not be
// computed are null, never zero.
type CalculationResponse struct {
	Jurisdiction     string  `json:"jurisdiction"`
	JurisdictionName string  `json:"jurisdiction_name"`
	TotalMiles       string  `json:"total_miles"`
	TotalGallons     string  `json:"total_gallons"`
	TaxPaid          string  `json:"tax_paid"`
	Status           string  `json:"status"`
	MPG              *string `json:"mpg"`
	TaxRate          *string `json:"tax_rate"` // cents per gallon
	TaxableGallons   *string `json:"taxable_gallons"`
	TaxDue           *string `json:"tax_due"`
	NetTax           *string `json:"net_tax"`
}

type ReportTotalsResponse struct {
	TotalMiles   string  `json:"total_miles"`
	TotalGallons string  `json:"total_gallons"`
	FleetMPG     *string `json:"fleet_mpg"`
	TotalTaxDue  string  `json:"total_tax_due"`
	TotalTaxPaid string  `json:"total_tax_paid"`
	TotalNetTax  string  `json:"total_net_tax"`
	FlaggedCount int     `json:"flagged_count"`
}

type ReportResponse struct {
	ClientID     string                `json:"client_id"`
	ClientName   string                `json:"client_name"`
	IFTALicense  string                `json:"ifta_license"`
	Period       string                `json:"period"`
	PeriodStart  string                `json:"period_start"`
	PeriodEnd    string                `json:"period_end"`
	Strategy     string                `json:"strategy"`
	Calculations []CalculationResponse `json:"calculations"`
	Totals       ReportTotalsResponse  `json:"totals"`
	GeneratedAt  string                `json:"generated_at"`
}

type ReportComputedEvent struct {
	ClientID     string `json:"client_id"`
	Period       string `json:"period"`
	Strategy     string `json:"strategy"`
	TotalNetTax  string `json:"total_net_tax"`
	FlaggedCount int    `json:"flagged_count"`
}

// ExportResult describes a written export file.
type ExportResult struct {
	Filename    string
	ContentType string
}

// --- Interface ---

type ReportService interface {
	GenerateReport(ctx context.Context, req ReportRequest) (*ReportResponse, error)
	ExportReport(ctx context.Context, req ReportRequest, format export.Format, w io.Writer) (ExportResult, error)
}

type reportService struct {
	clients         repository.ClientRepository
	mileage         repository.MileageRepository
	fuel            repository.FuelPurchaseRepository
	rates           repository.TaxRateRepository
	events          EventPublisher
	defaultStrategy string
	now             func() time.Time
}

func NewReportService(
	clients repository.ClientRepository,
	mileage repository.MileageRepository,
	fuel repository.FuelPurchaseRepository,
	rates repository.TaxRateRepository,
	events EventPublisher,
	defaultStrategy string,
) ReportService {
	return &reportService{
		clients:         clients,
		mileage:         mileage,
		fuel:            fuel,
		rates:           rates,
		events:          publisherOrNoop(events),
		defaultStrategy: defaultStrategy,
		now:             time.Now,
	}
}

// --- Implementation ---

func (s *reportService) GenerateReport(ctx context.Context, req ReportRequest) (*ReportResponse, error) {
	client, report, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	res := toReportResponse(client, report, s.now())
	s.events.Publish(EventReportComputed, ReportComputedEvent{
		ClientID:     res.ClientID,
		Period:       res.Period,
		Strategy:     res.Strategy,
		TotalNetTax:  res.Totals.TotalNetTax,
		FlaggedCount: res.Totals.FlaggedCount,
	})
	return res, nil
}

func (s *reportService) ExportReport(ctx context.Context, req ReportRequest, format export.Format, w io.Writer) (ExportResult, error) {
	client, report, err := s.compute(ctx, req)
	if err != nil {
		return ExportResult{}, err
	}

	meta := export.Meta{ClientName: client.Name, IFTALicense: client.IFTALicense}
	if err := export.Write(w, format, meta, report); err != nil {
		return ExportResult{}, err
	}

	zap.L().Info("report exported",
		zap.String("client_id", client.ID.String()),
		zap.String("period", report.Period.String()),
		zap.String("format", string(format)),
	)
	return ExportResult{
		Filename:    format.Filename(client.IFTALicense, report.Period.String()),
		ContentType: format.ContentType(),
	}, nil
}

// compute loads the client's quarter concurrently and aggregates it. Rates are
// those in effect on the last day of the quarter.
func (s *reportService) compute(ctx context.Context, req ReportRequest) (*model.Client, ifta.Report, error) {
	clientID, err := parseID("client", req.ClientID)
	if err != nil {
		return nil, ifta.Report{}, err
	}
	period, err := quarterPeriod(req.Year, req.Quarter)
	if err != nil {
		return nil, ifta.Report{}, err
	}
	strategy, err := s.strategy(req.Strategy)
	if err != nil {
		return nil, ifta.Report{}, err
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, ifta.Report{}, notFound("client", err)
	}

	filter := repository.LedgerFilter{Start: period.Start, End: period.EndOfDay()}

	var (
		miles []model.MileageRecord
		fuel  []model.FuelPurchase
		rates []model.TaxRate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if miles, err = s.mileage.ListAll(gctx, clientID, filter); err != nil {
			return eris.Wrap(err, "failed to load mileage records")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if fuel, err = s.fuel.ListAll(gctx, clientID, filter); err != nil {
			return eris.Wrap(err, "failed to load fuel purchases")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rates, err = s.rates.FindAllActive(gctx, period.End); err != nil {
			return eris.Wrap(err, "failed to load tax rates")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, ifta.Report{}, err
	}

	table, err := rateTable(rates)
	if err != nil {
		return nil, ifta.Report{}, err
	}

	in := ifta.Input{
		Period:  period,
		Rates:   table,
		Mileage: make([]ifta.Mileage, 0, len(miles)),
		Fuel:    make([]ifta.FuelPurchase, 0, len(fuel)),
	}
	for _, m := range miles {
		in.Mileage = append(in.Mileage, toIFTAMileage(m))
	}
	for _, f := range fuel {
		in.Fuel = append(in.Fuel, toIFTAFuel(f))
	}

	report, err := ifta.Aggregate(in, strategy)
	if err != nil {
		return nil, ifta.Report{}, fmt.Errorf("aggregate %s for client %s: %w", period, client.ID, err)
	}

	totals := report.Totals()
	zap.L().Info("quarterly report computed",
		zap.String("client_id", client.ID.String()),
		zap.String("period", period.String()),
		zap.String("strategy", report.Strategy),
		zap.Int("jurisdictions", len(report.Calculations)),
		zap.Int("flagged", totals.Flagged),
	)
	return client, report, nil
}

func (s *reportService) strategy(name string) (ifta.MPGStrategy, error) {
	if name == "" {
		name = s.defaultStrategy
	}
	return ifta.ParseStrategy(name)
}

func quarterPeriod(year, quarter int) (ifta.Period, error) {
	period, err := ifta.Quarter(year, quarter)
	if err != nil {
		return ifta.Period{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	return period, nil
}

func rateTable(rates []model.TaxRate) (ifta.RateTable, error) {
	converted := make([]ifta.Rate, 0, len(rates))
	for _, r := range rates {
		converted = append(converted, ifta.Rate{
			Jurisdiction:   r.Jurisdiction,
			CentsPerGallon: r.CentsPerGallon,
			EffectiveFrom:  r.EffectiveFrom,
		})
	}
	table, err := ifta.NewRateTable(converted...)
	if err != nil {
		return nil, eris.Wrap(err, "stored tax rate is invalid")
	}
	return table, nil
}

func toReportResponse(client *model.Client, r ifta.Report, generated time.Time) *ReportResponse {
	totals := r.Totals()
	res := &ReportResponse{
		ClientID:     client.ID.String(),
		ClientName:   client.Name,
		IFTALicense:  client.IFTALicense,
		Period:       r.Period.String(),
		PeriodStart:  r.Period.Start.Format(dateLayout),
		PeriodEnd:    r.Period.End.Format(dateLayout),
		Strategy:     r.Strategy,
		Calculations: make([]CalculationResponse, 0, len(r.Calculations)),
		Totals: ReportTotalsResponse{
			TotalMiles:   r.FleetMiles.StringFixed(2),
			TotalGallons: r.FleetGallons.StringFixed(3),
			FleetMPG:     fixed(r.FleetMPG, 4),
			TotalTaxDue:  totals.TaxDue.StringFixed(2),
			TotalTaxPaid: totals.TaxPaid.StringFixed(2),
			TotalNetTax:  totals.NetTax.StringFixed(2),
			FlaggedCount: totals.Flagged,
		},
		GeneratedAt: generated.UTC().Format(time.RFC3339),
	}

	for _, c := range r.Calculations {
		res.Calculations = append(res.Calculations, CalculationResponse{
			Jurisdiction:     c.Jurisdiction,
			JurisdictionName: ifta.JurisdictionName(c.Jurisdiction),
			TotalMiles:       c.TotalMiles.StringFixed(2),
			TotalGallons:     c.TotalGallons.StringFixed(3),
			TaxPaid:          c.TaxPaid.StringFixed(2),
			Status:           string(c.Status),
			MPG:              fixed(c.MPG, 4),
			TaxRate:          fixed(c.TaxRate, 4),
			TaxableGallons:   fixed(c.TaxableGallons, 3),
			TaxDue:           fixed(c.TaxDue, 2),
			NetTax:           fixed(c.NetTax, 2),
		})
	}
	return res
}

func fixed(d *decimal.Decimal, places int32) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(places)
	return &s
}
