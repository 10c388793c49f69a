package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FindingCategory classifies why an address was flagged.
type FindingCategory string

const (
	FindingHighRequestRate     FindingCategory = "high_request_rate"
	FindingSensitivePathAccess FindingCategory = "sensitive_path_access"
)

// Valid reports whether c is a known category.
func (c FindingCategory) Valid() bool {
	return c == FindingHighRequestRate || c == FindingSensitivePathAccess
}

// Finding is an anomaly flag raised by the anomaly job. There is at most one
// row per (address, category); re-detection refreshes the row in place.
// Resolved is flipped to true only by external review.
type Finding struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UUID            string          `json:"uuid" gorm:"uniqueIndex"`
	Address         string          `json:"address" gorm:"size:45;index;uniqueIndex:idx_finding_address_category,priority:1"`
	Category        FindingCategory `json:"category" gorm:"size:64;uniqueIndex:idx_finding_address_category,priority:2"`
	Detail          string          `json:"detail" gorm:"type:text"`
	FirstDetectedAt time.Time       `json:"first_detected_at" gorm:"index"`
	LastSeenAt      time.Time       `json:"last_seen_at"`
	Resolved        bool            `json:"resolved" gorm:"default:false"`
}

// BeforeCreate generates UUID and stamps first detection for new findings
func (f *Finding) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == "" {
		f.UUID = uuid.New().String()
	}
	if f.FirstDetectedAt.IsZero() {
		f.FirstDetectedAt = time.Now().UTC()
	}
	return nil
}
