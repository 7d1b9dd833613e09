package scheduler

import (
	"context"
	"time"

	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
)

// Config carries the sweep cadence and band lists. Zero values fall back to
// the defaults below.
type Config struct {
	DeadlineInterval time.Duration
	UnreadInterval   time.Duration
	PageSize         int
	// CriticalAges and WarningAges are the unread-reminder age bands; a
	// notification's reminder count indexes into its severity's list.
	CriticalAges []time.Duration
	WarningAges  []time.Duration
	// EscalationCount is the reminder count whose crossing triggers the
	// admin escalation for critical notifications.
	EscalationCount int
}

func (c *Config) applyDefaults() {
	if c.DeadlineInterval <= 0 {
		c.DeadlineInterval = time.Hour
	}
	if c.UnreadInterval <= 0 {
		c.UnreadInterval = 30 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if len(c.CriticalAges) == 0 {
		c.CriticalAges = []time.Duration{30 * time.Minute, 60 * time.Minute, 90 * time.Minute, 120 * time.Minute}
	}
	if len(c.WarningAges) == 0 {
		c.WarningAges = []time.Duration{60 * time.Minute, 120 * time.Minute}
	}
	if c.EscalationCount <= 0 {
		c.EscalationCount = 3
	}
}

// Scheduler runs the two periodic sweeps: deadline-band reminders and
// unread-notification escalation. Both are idempotent per (subject, band) and
// isolate failures per row.
type Scheduler struct {
	cfg           Config
	orders        repository.OrderRepository
	notifications repository.NotificationRepository
	reminders     repository.ReminderRepository
	users         repository.UserRepository
	queue         *sideeffect.Queue
	auditor       *audit.Logger
	log           *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func New(
	cfg Config,
	orders repository.OrderRepository,
	notifications repository.NotificationRepository,
	reminders repository.ReminderRepository,
	users repository.UserRepository,
	queue *sideeffect.Queue,
	auditor *audit.Logger,
	log *logger.Logger,
	m *metrics.Metrics,
) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		cfg:           cfg,
		orders:        orders,
		notifications: notifications,
		reminders:     reminders,
		users:         users,
		queue:         queue,
		auditor:       auditor,
		log:           log,
		metrics:       m,
		now:           time.Now,
	}
}

// Start blocks running both sweep loops until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	deadlineTicker := time.NewTicker(s.cfg.DeadlineInterval)
	unreadTicker := time.NewTicker(s.cfg.UnreadInterval)
	defer deadlineTicker.Stop()
	defer unreadTicker.Stop()

	s.log.Info("scheduler started",
		"deadline_interval", s.cfg.DeadlineInterval.String(),
		"unread_interval", s.cfg.UnreadInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler shutting down")
			return
		case <-deadlineTicker.C:
			s.runSweep(ctx, "deadline", s.DeadlineSweep)
		case <-unreadTicker.C:
			s.runSweep(ctx, "unread", s.UnreadSweep)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context, name string, sweep func(context.Context) error) {
	start := time.Now()
	if err := sweep(ctx); err != nil {
		s.log.Error(err, "sweep failed", "sweep", name)
	}
	if s.metrics != nil {
		s.metrics.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

func (s *Scheduler) rowError(name string, err error, fields ...interface{}) {
	s.log.Error(err, "sweep row failed", append([]interface{}{"sweep", name}, fields...)...)
	if s.metrics != nil {
		s.metrics.SweepRowErrors.WithLabelValues(name).Inc()
	}
}
