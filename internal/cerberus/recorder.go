package cerberus

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
	"github.com/Wikid82/ipguard/internal/models"
	"github.com/Wikid82/ipguard/internal/util"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
}

// Recorder writes one audit entry per allowed request. Failed writes are
// logged and dropped; there is no retry.
type Recorder struct {
	writer AuditWriter
	log    *logrus.Entry
	now    func() time.Time
}

// NewRecorder returns a Recorder using writer. A nil now uses time.Now.
func NewRecorder(writer AuditWriter, log *logrus.Entry, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{writer: writer, log: logger.OrDefault(log, "audit"), now: now}
}

// Record stores the entry and reports whether it was persisted.
func (r *Recorder) Record(ctx context.Context, address, path, country, city string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.failed(address, path, fmt.Errorf("panic: %v", rec))
			ok = false
		}
	}()

	entry := &models.AuditEntry{
		Address:    address,
		Path:       path,
		Country:    country,
		City:       city,
		ObservedAt: r.now().UTC(),
	}
	if err := r.writer.Record(ctx, entry); err != nil {
		r.failed(address, path, err)
		return false
	}
	return true
}

func (r *Recorder) failed(address, path string, err error) {
	metrics.IncAuditError()
	r.log.WithFields(logrus.Fields{
		"address": address,
		"path":    util.SanitizeForLog(path),
	}).WithError(err).Error("Failed to record request")
}
