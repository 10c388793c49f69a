package models

import (
	"fmt"
	"time"
)

// Column limits for AuditEntry. Writers truncate to these sizes.
const (
	MaxAddressLength = 45 // enough for IPv6
	MaxPathLength    = 2048
	MaxGeoLength     = 100
)

// AuditEntry is one allowed request as seen by the pipeline. Rows are never
// updated after creation.
type AuditEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Address    string    `json:"address" gorm:"size:45;index"`
	Path       string    `json:"path" gorm:"size:2048"`
	Country    string    `json:"country" gorm:"size:100"`
	City       string    `json:"city" gorm:"size:100"`
	ObservedAt time.Time `json:"observed_at" gorm:"index;not null"`
}

func (e AuditEntry) String() string {
	return fmt.Sprintf("%s @ %s -> %s (%s, %s)", e.Address, e.ObservedAt.Format(time.RFC3339), e.Path, e.City, e.Country)
}
