package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const maintenanceTimeout = time.Minute

// Purger drops closed call logs older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Maintenance runs the periodic jobs of a serving process: abandoning idle
// sessions and enforcing log retention.
type Maintenance struct {
	cron    *cron.Cron
	manager *Manager
	purger  Purger
	cfg     Config
	now     func() time.Time
}

// NewMaintenance registers the jobs enabled by cfg. A nil purger or zero
// RetentionDays disables retention; a zero IdleTimeout disables the sweep.
func NewMaintenance(manager *Manager, purger Purger, cfg Config) (*Maintenance, error) {
	m := &Maintenance{
		cron:    cron.New(),
		manager: manager,
		purger:  purger,
		cfg:     cfg,
		now:     time.Now,
	}
	if manager != nil {
		m.now = manager.now
	}

	if manager != nil && cfg.IdleTimeout > 0 && strings.TrimSpace(cfg.SweepSchedule) != "" {
		if _, err := m.cron.AddFunc(cfg.SweepSchedule, m.SweepIdle); err != nil {
			return nil, fmt.Errorf("schedule idle sweep: %w", err)
		}
	}
	if purger != nil && cfg.RetentionDays > 0 && strings.TrimSpace(cfg.RetentionSchedule) != "" {
		if _, err := m.cron.AddFunc(cfg.RetentionSchedule, m.Purge); err != nil {
			return nil, fmt.Errorf("schedule log retention: %w", err)
		}
	}
	return m, nil
}

func (m *Maintenance) Jobs() int {
	return len(m.cron.Entries())
}

func (m *Maintenance) Start() {
	m.cron.Start()
	log.Info().Int("jobs", m.Jobs()).Msg("maintenance scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Maintenance) Stop(ctx context.Context) {
	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (m *Maintenance) SweepIdle() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	if n := m.manager.SweepIdle(ctx, m.cfg.IdleTimeout); n > 0 {
		log.Info().Int("sessions", n).Dur("idle_timeout", m.cfg.IdleTimeout).Msg("abandoned idle sessions")
	}
}

func (m *Maintenance) Purge() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	cutoff := m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	if _, err := m.purger.PurgeBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("log retention failed")
	}
}
