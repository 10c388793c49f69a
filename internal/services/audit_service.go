package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Wikid82/ipguard/internal/models"
	"github.com/Wikid82/ipguard/internal/util"
)

// AuditFilter narrows List results.
type AuditFilter struct {
	Address string
	Limit   int
}

// AddressStat is the per-address aggregate of audit entries in a window.
type AddressStat struct {
	Address  string
	Count    int64
	LastSeen time.Time
}

// AuditService appends and aggregates AuditEntry rows.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService returns an AuditService using the provided DB
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record persists entry. Oversized fields are truncated to the column limits
// and a zero ObservedAt is stamped with the current time.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return nil
	}
	entry.Address = util.Truncate(entry.Address, models.MaxAddressLength)
	entry.Path = util.Truncate(entry.Path, models.MaxPathLength)
	entry.Country = util.Truncate(entry.Country, models.MaxGeoLength)
	entry.City = util.Truncate(entry.City, models.MaxGeoLength)
	if entry.ObservedAt.IsZero() {
		entry.ObservedAt = time.Now()
	}
	entry.ObservedAt = entry.ObservedAt.UTC()
	return s.db.WithContext(ctx).Create(entry).Error
}

// List returns recent entries ordered by observed_at desc.
func (s *AuditService) List(filter AuditFilter) ([]models.AuditEntry, error) {
	q := s.db.Order("observed_at desc")
	if filter.Address != "" {
		q = q.Where("address = ?", filter.Address)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var entries []models.AuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// WindowStats groups every entry observed at or after since by address.
func (s *AuditService) WindowStats(ctx context.Context, since time.Time) ([]AddressStat, error) {
	return s.addressStats(ctx, since, nil)
}

// PathStats groups entries observed at or after since whose path is one of
// paths. No paths means no rows.
func (s *AuditService) PathStats(ctx context.Context, since time.Time, paths []string) ([]AddressStat, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	return s.addressStats(ctx, since, paths)
}

func (s *AuditService) addressStats(ctx context.Context, since time.Time, paths []string) ([]AddressStat, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditEntry{}).
		Select("address, COUNT(*) AS count, MAX(observed_at) AS last_seen").
		Where("observed_at >= ?", since.UTC())
	if len(paths) > 0 {
		q = q.Where("path IN ?", paths)
	}

	// MAX() loses the column type in SQLite, so the timestamp comes back as text.
	var rows []struct {
		Address  string
		Count    int64
		LastSeen string
	}
	if err := q.Group("address").Order("address").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate audit window: %w", err)
	}

	stats := make([]AddressStat, 0, len(rows))
	for _, row := range rows {
		lastSeen, err := parseStoreTime(row.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("parse last seen for %s: %w", row.Address, err)
		}
		stats = append(stats, AddressStat{Address: row.Address, Count: row.Count, LastSeen: lastSeen})
	}
	return stats, nil
}

var storeTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseStoreTime(raw string) (time.Time, error) {
	for _, layout := range storeTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
