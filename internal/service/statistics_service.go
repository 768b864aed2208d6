package service

import (
	"context"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

const topJurisdictionsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, clientID string, startDate, endDate time.Time) (model.LedgerStatistics, error)
}

type statisticsService struct {
	clients repository.ClientRepository
	repo    repository.StatisticsRepository
}

func NewStatisticsService(clients repository.ClientRepository, repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{clients: clients, repo: repo}
}

// GetStatistics summarises a client's ledgers between two instants, inclusive.
func (s *statisticsService) GetStatistics(ctx context.Context, clientID string, startDate, endDate time.Time) (model.LedgerStatistics, error) {
	id, err := parseID("client", clientID)
	if err != nil {
		return model.LedgerStatistics{}, err
	}
	if endDate.Before(startDate) {
		return model.LedgerStatistics{}, validationf("end_date must not be before start_date")
	}
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		return model.LedgerStatistics{}, notFound("client", err)
	}

	var (
		miles repository.MileageTotals
		fuel  repository.FuelTotals
		top   []model.JurisdictionRanking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if miles, err = s.repo.GetMileageTotals(gctx, id, startDate, endDate); err != nil {
			return eris.Wrap(err, "failed to compute mileage totals")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if fuel, err = s.repo.GetFuelTotals(gctx, id, startDate, endDate); err != nil {
			return eris.Wrap(err, "failed to compute fuel totals")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if top, err = s.repo.GetTopJurisdictions(gctx, id, startDate, endDate, topJurisdictionsLimit); err != nil {
			return eris.Wrap(err, "failed to rank jurisdictions")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.LedgerStatistics{}, err
	}

	stats := model.LedgerStatistics{
		TripCount:        miles.Count,
		PurchaseCount:    fuel.Count,
		TotalMiles:       miles.Miles,
		TotalGallons:     fuel.Gallons,
		TotalFuelCost:    fuel.Cost,
		TotalTaxPaid:     fuel.TaxPaid,
		TopJurisdictions: top,
		TimeRangeStart:   startDate,
		TimeRangeEnd:     endDate,
	}
	if stats.TopJurisdictions == nil {
		stats.TopJurisdictions = []model.JurisdictionRanking{}
	}
	if fuel.Gallons.IsPositive() {
		mpg := miles.Miles.Div(fuel.Gallons).Round(4)
		stats.FleetMPG = &mpg
	}
	return stats, nil
}
