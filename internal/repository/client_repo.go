package repository

import (
	"context"
	"strings"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	FindByLicense(ctx context.Context, license string) (*model.Client, error)
	List(ctx context.Context, search, status string, page, limit int) ([]model.Client, int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Client{}).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// FindByLicense includes soft-deleted clients; the unique index still covers them.
func (r *clientRepository) FindByLicense(ctx context.Context, license string) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).Unscoped().First(&client, "ifta_license = ?", license).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List matches search against name and license, case-insensitively.
func (r *clientRepository) List(ctx context.Context, search, status string, page, limit int) ([]model.Client, int64, error) {
	var clients []model.Client
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where("LOWER(name) LIKE ? OR LOWER(ifta_license) LIKE ?", like, like)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Client{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(filter).Order("name asc").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}
