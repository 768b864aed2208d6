package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateClient = "CREATE_CLIENT"
	ActionUpdateClient = "UPDATE_CLIENT"
	ActionDeleteClient = "DELETE_CLIENT"

	ActionCreateTaxRate  = "CREATE_TAX_RATE"
	ActionUpdateTaxRate  = "UPDATE_TAX_RATE"
	ActionDeleteTaxRate  = "DELETE_TAX_RATE"
	ActionImportTaxRates = "IMPORT_TAX_RATES"

	ActionCreateMileage      = "CREATE_MILEAGE_RECORD"
	ActionDeleteMileage      = "DELETE_MILEAGE_RECORD"
	ActionCreateFuelPurchase = "CREATE_FUEL_PURCHASE"
	ActionDeleteFuelPurchase = "DELETE_FUEL_PURCHASE"
)

// AuditLog tracks Who, What, and When for compliance-relevant changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for CLI imports
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // serialized JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
