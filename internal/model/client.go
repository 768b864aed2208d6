package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client status constants
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

// Client is a motor carrier whose IFTA returns the business prepares.
type Client struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(255);not null" json:"name"`
	IFTALicense      string         `gorm:"column:ifta_license;type:varchar(30);uniqueIndex;not null" json:"ifta_license"`
	BaseJurisdiction string         `gorm:"type:varchar(2);not null" json:"base_jurisdiction"`
	ContactEmail     string         `gorm:"type:varchar(255)" json:"contact_email"`
	Status           string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Client) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
