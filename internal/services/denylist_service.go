package services

import (
	"context"
	"errors"
	"net"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/ipguard/internal/models"
	"github.com/Wikid82/ipguard/internal/util"
)

const maxReasonLength = 255

var (
	ErrDenyEntryNotFound = errors.New("deny entry not found")
	ErrEmptyAddress      = errors.New("address is required")
	ErrInvalidAddress    = errors.New("invalid IP address")
)

// DenylistService manages the set of barred addresses. The request gate only
// ever calls IsBlocked; every mutation goes through Block and Unblock.
type DenylistService struct {
	db *gorm.DB
}

// NewDenylistService returns a DenylistService using the provided DB
func NewDenylistService(db *gorm.DB) *DenylistService {
	return &DenylistService{db: db}
}

// Block adds address to the denylist. An existing entry is kept and only its
// reason is replaced, and only when a different non-empty reason is given.
// created reports whether a new row was inserted. Concurrent calls for the
// same address converge on one row.
func (s *DenylistService) Block(address, reason string) (entry *models.DenyEntry, created bool, err error) {
	address, err = normalizeAddress(address)
	if err != nil {
		return nil, false, err
	}
	reason = util.Truncate(strings.TrimSpace(reason), maxReasonLength)

	entry = &models.DenyEntry{Address: address, Reason: reason}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return entry, true, nil
	}

	if reason != "" {
		if err := s.db.Model(&models.DenyEntry{}).
			Where("address = ? AND reason <> ?", address, reason).
			Update("reason", reason).Error; err != nil {
			return nil, false, err
		}
	}
	entry, err = s.Get(address)
	if err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// Unblock removes address from the denylist.
func (s *DenylistService) Unblock(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyAddress
	}
	res := s.db.Where("address = ?", address).Delete(&models.DenyEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDenyEntryNotFound
	}
	return nil
}

// Get returns the entry for address.
func (s *DenylistService) Get(address string) (*models.DenyEntry, error) {
	var entry models.DenyEntry
	if err := s.db.Where("address = ?", strings.TrimSpace(address)).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDenyEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// List returns all entries, newest first.
func (s *DenylistService) List() ([]models.DenyEntry, error) {
	var entries []models.DenyEntry
	if err := s.db.Order("created_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// IsBlocked reports whether address has a deny entry, by exact match. An
// empty address is unknown and never blocked.
func (s *DenylistService) IsBlocked(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.DenyEntry{}).Where("address = ?", address).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrEmptyAddress
	}
	if net.ParseIP(address) == nil {
		return "", ErrInvalidAddress
	}
	return address, nil
}
