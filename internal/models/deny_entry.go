package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DenyEntry bars an address from the protected service. Address is unique;
// the gate relies on at most one row per address.
type DenyEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Address   string    `json:"address" gorm:"size:45;uniqueIndex;not null"`
	Reason    string    `json:"reason" gorm:"size:255;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates UUID for new deny entries
func (d *DenyEntry) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	return nil
}
