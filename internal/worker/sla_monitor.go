package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/sla"
)

// SLAMonitor periodically scans open requests, evaluates their deadlines
// and publishes a breach notification the first time a stage goes overdue.
// Breach events are notifications only; they never enter the request's
// event log and never change its state.
type SLAMonitor struct {
	requests   repository.RequestRepository
	calc       *sla.Calculator
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	scanLimit  int
	now        func() time.Time
}

// SLAMonitorConfig bundles construction parameters.
type SLAMonitorConfig struct {
	Requests   repository.RequestRepository
	Calculator *sla.Calculator
	Redis      *persistence.Redis
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Interval   time.Duration
	ScanLimit  int
	Now        func() time.Time
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(cfg SLAMonitorConfig) *SLAMonitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SLAMonitor{
		requests:   cfg.Requests,
		calc:       cfg.Calculator,
		redis:      cfg.Redis,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		interval:   interval,
		scanLimit:  cfg.ScanLimit,
		now:        now,
	}
}

// Run blocks until ctx is cancelled, scanning on every tick.
func (m *SLAMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			if err := m.Scan(ctx); err != nil {
				m.logger.Error("sla scan failed", zap.Error(err))
			}
		}
	}
}

// Scan runs a single pass over open requests.
func (m *SLAMonitor) Scan(ctx context.Context) error {
	open, err := m.requests.ListOpen(ctx, m.scanLimit)
	if err != nil {
		return err
	}

	now := m.now()
	breached := 0
	for i := range open {
		req := &open[i]
		for _, deadline := range m.calc.Evaluate(req, now) {
			if deadline.Status != sla.StatusOverdue {
				continue
			}
			if err := m.notifyBreach(ctx, req, deadline, now); err != nil {
				m.logger.Warn("breach notification failed",
					zap.String("request_id", req.ID),
					zap.String("stage", string(deadline.Stage)),
					zap.Error(err))
				continue
			}
			breached++
		}
	}
	if breached > 0 {
		m.logger.Info("sla scan complete",
			zap.Int("scanned", len(open)),
			zap.Int("breaches", breached))
	}
	return nil
}

// notifyBreach publishes at most one breach event per request and stage.
// Redis SETNX is the dedupe guard; when Redis is unavailable the guard
// degrades to always-notify rather than never-notify.
func (m *SLAMonitor) notifyBreach(ctx context.Context, req *domain.MaintenanceRequest, deadline sla.Deadline, now time.Time) error {
	key := fmt.Sprintf("sla:breach:%s:%s", req.ID, deadline.Stage)
	first, err := m.redis.SetOnce(ctx, key, 30*24*time.Hour)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	event := lifecycle.Event{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Type:      lifecycle.EventSLABreached,
		ActorID:   "system",
		ActorRole: domain.RoleSuperAdmin,
		Timestamp: now,
		Payload: lifecycle.SLABreachedPayload{
			Stage:      string(deadline.Stage),
			DeadlineAt: deadline.DeadlineAt,
			Priority:   req.Priority,
		},
	}
	return m.dispatcher.Publish(ctx, event)
}
