package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/ipguard/internal/models"
)

var ErrFindingNotFound = errors.New("finding not found")

// FindingUpsert is one create-or-refresh of the finding keyed by
// (Address, Category).
type FindingUpsert struct {
	Address    string
	Category   models.FindingCategory
	Detail     string
	LastSeenAt time.Time
}

// FindingFilter narrows List results.
type FindingFilter struct {
	UnresolvedOnly bool
	Category       models.FindingCategory
	Address        string
}

// FindingService stores anomaly findings.
type FindingService struct {
	db *gorm.DB
}

// NewFindingService returns a FindingService using the provided DB
func NewFindingService(db *gorm.DB) *FindingService {
	return &FindingService{db: db}
}

// Upsert creates the finding for (address, category) or refreshes the
// existing one. Every upsert re-arms the finding by clearing Resolved;
// FirstDetectedAt is only written on insert. created reports whether a new
// row was inserted.
//
// Both steps are single autocommit statements, so each waits on the SQLite
// busy timeout while the pipeline holds the write lock. Findings are never
// deleted; a row the insert skipped is there to update.
func (s *FindingService) Upsert(ctx context.Context, op FindingUpsert) (created bool, err error) {
	db := s.db.WithContext(ctx)
	finding := &models.Finding{
		Address:    op.Address,
		Category:   op.Category,
		Detail:     op.Detail,
		LastSeenAt: op.LastSeenAt.UTC(),
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}, {Name: "category"}},
		DoNothing: true,
	}).Create(finding)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = db.Model(&models.Finding{}).
		Where("address = ? AND category = ?", op.Address, op.Category).
		Updates(map[string]interface{}{
			"detail":       op.Detail,
			"last_seen_at": op.LastSeenAt.UTC(),
			"resolved":     false,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, ErrFindingNotFound
	}
	return false, nil
}

// List returns findings, most recently seen first.
func (s *FindingService) List(filter FindingFilter) ([]models.Finding, error) {
	q := s.db.Order("last_seen_at desc")
	if filter.UnresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Address != "" {
		q = q.Where("address = ?", filter.Address)
	}
	var findings []models.Finding
	if err := q.Find(&findings).Error; err != nil {
		return nil, err
	}
	return findings, nil
}

// Get returns the finding with id.
func (s *FindingService) Get(id uint) (*models.Finding, error) {
	var f models.Finding
	if err := s.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFindingNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Resolve marks a finding as reviewed. It stays resolved until the anomaly
// job detects the same behaviour again.
func (s *FindingService) Resolve(id uint) (*models.Finding, error) {
	res := s.db.Model(&models.Finding{}).Where("id = ?", id).Update("resolved", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrFindingNotFound
	}
	return s.Get(id)
}
