package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
	"github.com/Wikid82/ipguard/internal/models"
)

const (
	passHighRate      = "high_rate"
	passSensitivePath = "sensitive_path"
)

// PassReport summarises one detection pass.
type PassReport struct {
	Flagged int    `json:"flagged"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// RunReport summarises one anomaly run.
type RunReport struct {
	StartedAt     time.Time  `json:"started_at"`
	WindowStart   time.Time  `json:"window_start"`
	FinishedAt    time.Time  `json:"finished_at"`
	HighRate      PassReport `json:"high_rate"`
	SensitivePath PassReport `json:"sensitive_path"`
}

// PlanHighRate returns an upsert for every address whose request count is
// strictly greater than threshold.
func PlanHighRate(stats []AddressStat, threshold int) []FindingUpsert {
	var ops []FindingUpsert
	for _, st := range stats {
		if st.Count <= int64(threshold) {
			continue
		}
		ops = append(ops, FindingUpsert{
			Address:    st.Address,
			Category:   models.FindingHighRequestRate,
			Detail:     fmt.Sprintf("requests_in_window=%d", st.Count),
			LastSeenAt: st.LastSeen,
		})
	}
	return ops
}

// PlanSensitivePath returns an upsert for every address with at least one
// sensitive path hit. stats must already be restricted to sensitive paths.
func PlanSensitivePath(stats []AddressStat) []FindingUpsert {
	var ops []FindingUpsert
	for _, st := range stats {
		if st.Count <= 0 {
			continue
		}
		ops = append(ops, FindingUpsert{
			Address:    st.Address,
			Category:   models.FindingSensitivePathAccess,
			Detail:     fmt.Sprintf("sensitive_paths_accessed=%d", st.Count),
			LastSeenAt: st.LastSeen,
		})
	}
	return ops
}

// AnomalyService periodically scans the audit log for a trailing window and
// records findings. Counts are recomputed from the window on every run, so
// repeated runs over unchanged data converge on the same findings.
type AnomalyService struct {
	audit    *AuditService
	findings *FindingService
	notifier Notifier
	cfg      config.AnomalyConfig
	log      *logrus.Entry
	now      func() time.Time

	runMu sync.Mutex
	Cron  *cron.Cron
}

// NewAnomalyService wires the job and registers it on its own cron scheduler.
// The scheduler is not started until Start is called.
func NewAnomalyService(audit *AuditService, findings *FindingService, notifier Notifier, cfg config.AnomalyConfig, log *logrus.Entry) (*AnomalyService, error) {
	s := &AnomalyService{
		audit:    audit,
		findings: findings,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.OrDefault(log, "anomaly"),
		now:      time.Now,
	}

	cronLog := cron.PrintfLogger(s.log)
	s.Cron = cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	if cfg.Schedule != "" {
		if _, err := s.Cron.AddFunc(cfg.Schedule, s.RunScheduled); err != nil {
			return nil, fmt.Errorf("schedule anomaly detection %q: %w", cfg.Schedule, err)
		}
	}
	return s, nil
}

// Start begins the scheduled runs.
func (s *AnomalyService) Start() {
	s.Cron.Start()
	s.log.WithField("schedule", s.cfg.Schedule).Info("Anomaly detection scheduled")
}

// Stop halts the scheduler; the returned context is done once a running job
// has finished.
func (s *AnomalyService) Stop() context.Context {
	return s.Cron.Stop()
}

// RunScheduled is the cron entry point.
func (s *AnomalyService) RunScheduled() {
	_, _ = s.RunBounded(context.Background())
}

// RunBounded runs detection for the window ending now, bounded by the
// configured run timeout so a stuck query cannot hold up the next run.
func (s *AnomalyService) RunBounded(ctx context.Context) (RunReport, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	return s.Run(ctx, s.now())
}

// Run executes both detection passes for the window ending at now. A failing
// pass is logged and does not stop the other; the returned error joins the
// failures. Runs are serialized. Alerts for new findings go out after both
// passes have written, outside ctx.
func (s *AnomalyService) Run(ctx context.Context, now time.Time) (RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	since := now.Add(-s.cfg.Window)
	report := RunReport{StartedAt: now, WindowStart: since}
	s.log.WithFields(logrus.Fields{
		"now":   now.Format(time.RFC3339),
		"since": since.Format(time.RFC3339),
	}).Info("Anomaly detection started")

	var (
		errs    []error
		created []FindingUpsert
	)

	highRate, err := s.runPass(ctx, passHighRate, &created, func() ([]FindingUpsert, error) {
		stats, err := s.audit.WindowStats(ctx, since)
		if err != nil {
			return nil, err
		}
		return PlanHighRate(stats, s.cfg.RateThreshold), nil
	})
	report.HighRate = highRate
	if err != nil {
		errs = append(errs, err)
	}

	sensitive, err := s.runPass(ctx, passSensitivePath, &created, func() ([]FindingUpsert, error) {
		stats, err := s.audit.PathStats(ctx, since, s.cfg.SensitivePaths)
		if err != nil {
			return nil, err
		}
		return PlanSensitivePath(stats), nil
	})
	report.SensitivePath = sensitive
	if err != nil {
		errs = append(errs, err)
	}

	report.FinishedAt = s.now()
	s.log.WithFields(logrus.Fields{
		"high_rate_flagged":      report.HighRate.Flagged,
		"sensitive_path_flagged": report.SensitivePath.Flagged,
	}).Info("Anomaly detection finished")

	s.alert(created)
	return report, errors.Join(errs...)
}

func (s *AnomalyService) alert(created []FindingUpsert) {
	if s.notifier == nil {
		return
	}
	for _, op := range created {
		s.notifier.Notify(
			fmt.Sprintf("Suspicious address %s", op.Address),
			fmt.Sprintf("%s: %s (last seen %s)", op.Category, op.Detail, op.LastSeenAt.UTC().Format(time.RFC3339)),
		)
	}
}

func (s *AnomalyService) runPass(ctx context.Context, name string, created *[]FindingUpsert, plan func() ([]FindingUpsert, error)) (PassReport, error) {
	var report PassReport
	entry := s.log.WithField("pass", name)

	ops, err := plan()
	if err != nil {
		entry.WithError(err).Error("Anomaly pass failed")
		metrics.IncAnomalyPass(name, "error")
		report.Error = err.Error()
		return report, fmt.Errorf("%s pass: %w", name, err)
	}
	report.Flagged = len(ops)

	var failed []error
	for _, op := range ops {
		isNew, err := s.findings.Upsert(ctx, op)
		fields := logrus.Fields{"address": op.Address, "category": op.Category, "detail": op.Detail}
		if err != nil {
			entry.WithFields(fields).WithError(err).Error("Failed to upsert finding")
			failed = append(failed, err)
			continue
		}
		if isNew {
			report.Created++
			metrics.IncFinding(string(op.Category), "created")
			entry.WithFields(fields).Warn("Flagged suspicious address")
			*created = append(*created, op)
		} else {
			report.Updated++
			metrics.IncFinding(string(op.Category), "updated")
			entry.WithFields(fields).Info("Updated suspicious address")
		}
	}

	if len(failed) > 0 {
		err := fmt.Errorf("%s pass: %w", name, errors.Join(failed...))
		report.Error = err.Error()
		metrics.IncAnomalyPass(name, "error")
		return report, err
	}
	metrics.IncAnomalyPass(name, "ok")
	return report, nil
}
