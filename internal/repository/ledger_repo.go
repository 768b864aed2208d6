package repository

import (
	"context"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerFilter narrows ledger listings. Zero values mean "no restriction".
type LedgerFilter struct {
	Start        time.Time
	End          time.Time
	Jurisdiction string
	VehicleID    string
}

func (f LedgerFilter) scope(dateColumn string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !f.Start.IsZero() {
			db = db.Where(dateColumn+" >= ?", f.Start)
		}
		if !f.End.IsZero() {
			db = db.Where(dateColumn+" <= ?", f.End)
		}
		if f.Jurisdiction != "" {
			db = db.Where("jurisdiction = ?", f.Jurisdiction)
		}
		if f.VehicleID != "" {
			db = db.Where("vehicle_id = ?", f.VehicleID)
		}
		return db
	}
}

type MileageRepository interface {
	Create(ctx context.Context, record *model.MileageRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MileageRecord, error)
	List(ctx context.Context, clientID uuid.UUID, filter LedgerFilter, page, limit int) ([]model.MileageRecord, int64, error)
	ListAll(ctx context.Context, clientID uuid.UUID, filter LedgerFilter) ([]model.MileageRecord, error)
}

type mileageRepository struct {
	db *gorm.DB
}

func NewMileageRepository(db *gorm.DB) MileageRepository {
	return &mileageRepository{db: db}
}

func (r *mileageRepository) Create(ctx context.Context, record *model.MileageRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *mileageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.MileageRecord{}).Error
}

func (r *mileageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MileageRecord, error) {
	var record model.MileageRecord
	if err := GetDB(ctx, r.db).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *mileageRepository) List(ctx context.Context, clientID uuid.UUID, filter LedgerFilter, page, limit int) ([]model.MileageRecord, int64, error) {
	var records []model.MileageRecord
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.MileageRecord{}).Where("client_id = ?", clientID).Scopes(filter.scope("trip_date")).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("client_id = ?", clientID).Scopes(filter.scope("trip_date")).
		Order("trip_date desc, created_at desc").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListAll returns every matching record in date order, for aggregation.
func (r *mileageRepository) ListAll(ctx context.Context, clientID uuid.UUID, filter LedgerFilter) ([]model.MileageRecord, error) {
	var records []model.MileageRecord
	if err := GetDB(ctx, r.db).Where("client_id = ?", clientID).Scopes(filter.scope("trip_date")).
		Order("trip_date asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type FuelPurchaseRepository interface {
	Create(ctx context.Context, purchase *model.FuelPurchase) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FuelPurchase, error)
	ReceiptExists(ctx context.Context, clientID uuid.UUID, receiptNumber string) (bool, error)
	List(ctx context.Context, clientID uuid.UUID, filter LedgerFilter, page, limit int) ([]model.FuelPurchase, int64, error)
	ListAll(ctx context.Context, clientID uuid.UUID, filter LedgerFilter) ([]model.FuelPurchase, error)
}

type fuelPurchaseRepository struct {
	db *gorm.DB
}

func NewFuelPurchaseRepository(db *gorm.DB) FuelPurchaseRepository {
	return &fuelPurchaseRepository{db: db}
}

func (r *fuelPurchaseRepository) Create(ctx context.Context, purchase *model.FuelPurchase) error {
	return GetDB(ctx, r.db).Create(purchase).Error
}

func (r *fuelPurchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.FuelPurchase{}).Error
}

func (r *fuelPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelPurchase, error) {
	var purchase model.FuelPurchase
	if err := GetDB(ctx, r.db).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *fuelPurchaseRepository) ReceiptExists(ctx context.Context, clientID uuid.UUID, receiptNumber string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.FuelPurchase{}).
		Where("client_id = ? AND receipt_number = ?", clientID, receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *fuelPurchaseRepository) List(ctx context.Context, clientID uuid.UUID, filter LedgerFilter, page, limit int) ([]model.FuelPurchase, int64, error) {
	var purchases []model.FuelPurchase
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.FuelPurchase{}).Where("client_id = ?", clientID).Scopes(filter.scope("purchase_date")).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("client_id = ?", clientID).Scopes(filter.scope("purchase_date")).
		Order("purchase_date desc, created_at desc").Offset(offset).Limit(limit).Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

func (r *fuelPurchaseRepository) ListAll(ctx context.Context, clientID uuid.UUID, filter LedgerFilter) ([]model.FuelPurchase, error) {
	var purchases []model.FuelPurchase
	if err := GetDB(ctx, r.db).Where("client_id = ?", clientID).Scopes(filter.scope("purchase_date")).
		Order("purchase_date asc").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
