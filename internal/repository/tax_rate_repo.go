package repository

import (
	"context"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRateRepository interface {
	Create(ctx context.Context, rate *model.TaxRate) error
	Update(ctx context.Context, rate *model.TaxRate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRate, error)
	List(ctx context.Context, jurisdiction string, page, limit int) ([]model.TaxRate, int64, error)
	FindActive(ctx context.Context, jurisdiction string, targetDate time.Time) (*model.TaxRate, error)
	FindAllActive(ctx context.Context, targetDate time.Time) ([]model.TaxRate, error)
	CountOverlapping(ctx context.Context, jurisdiction string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
}

type taxRateRepository struct {
	db *gorm.DB
}

func NewTaxRateRepository(db *gorm.DB) TaxRateRepository {
	return &taxRateRepository{db: db}
}

// farFuture stands in for an open-ended effective_to in overlap checks.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func (r *taxRateRepository) Create(ctx context.Context, rate *model.TaxRate) error {
	return GetDB(ctx, r.db).Create(rate).Error
}

func (r *taxRateRepository) Update(ctx context.Context, rate *model.TaxRate) error {
	return GetDB(ctx, r.db).Save(rate).Error
}

func (r *taxRateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TaxRate{}).Error
}

func (r *taxRateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRate, error) {
	var rate model.TaxRate
	if err := GetDB(ctx, r.db).First(&rate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *taxRateRepository) List(ctx context.Context, jurisdiction string, page, limit int) ([]model.TaxRate, int64, error) {
	var rates []model.TaxRate
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if jurisdiction != "" {
			return db.Where("jurisdiction = ?", jurisdiction)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.TaxRate{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(filter).Order("jurisdiction asc, effective_from desc").Offset(offset).Limit(limit).Find(&rates).Error; err != nil {
		return nil, 0, err
	}

	return rates, total, nil
}

// FindActive: effective_from <= targetDate AND (effective_to IS NULL OR effective_to >= targetDate)
func (r *taxRateRepository) FindActive(ctx context.Context, jurisdiction string, targetDate time.Time) (*model.TaxRate, error) {
	var rate model.TaxRate
	if err := GetDB(ctx, r.db).
		Where("jurisdiction = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", jurisdiction, targetDate, targetDate).
		Order("effective_from DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindAllActive returns every jurisdiction's rate in effect on targetDate.
func (r *taxRateRepository) FindAllActive(ctx context.Context, targetDate time.Time) ([]model.TaxRate, error) {
	var rates []model.TaxRate
	if err := GetDB(ctx, r.db).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", targetDate, targetDate).
		Order("jurisdiction asc, effective_from desc").
		Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// CountOverlapping: existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
func (r *taxRateRepository) CountOverlapping(ctx context.Context, jurisdiction string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	upper := farFuture
	if to != nil {
		upper = *to
	}

	query := GetDB(ctx, r.db).Model(&model.TaxRate{}).
		Where("jurisdiction = ?", jurisdiction).
		Where("effective_from <= ?", upper).
		Where("(effective_to IS NULL OR effective_to >= ?)", from)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
