package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CentsPerGallonPlaces is the scale of the cents_per_gallon column.
const CentsPerGallonPlaces = 4

// TaxRate stores a jurisdiction's fuel tax with temporal validity
type TaxRate struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Jurisdiction   string          `gorm:"type:varchar(2);not null;index" json:"jurisdiction"`
	CentsPerGallon decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"cents_per_gallon"`
	EffectiveFrom  time.Time       `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo    *time.Time      `gorm:"type:date;index" json:"effective_to"` // nil = currently active
	Description    string          `gorm:"type:text" json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (r *TaxRate) BeforeCreate(_ *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
