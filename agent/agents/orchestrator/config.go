package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	nodex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/nodes"
)

// Config is read with the AGENT prefix.
type Config struct {
	DispatcherMaxTokens int    `envconfig:"DISPATCHER_MAX_TOKENS" default:"256"`
	SpecialistMaxTokens int    `envconfig:"SPECIALIST_MAX_TOKENS" default:"800"`
	SynthesisMaxTokens  int    `envconfig:"SYNTHESIS_MAX_TOKENS" default:"512"`
	MaxRouteHops        int    `envconfig:"MAX_ROUTE_HOPS" default:"2"`
	Mode                string `envconfig:"MODE" default:"ai"`
	DefaultCustomerID   string `envconfig:"DEFAULT_CUSTOMER_ID" default:"1001"`

	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"30m"`
	SweepSchedule     string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`
	RetentionDays     int           `envconfig:"RETENTION_DAYS" default:"90"`
	RetentionSchedule string        `envconfig:"RETENTION_SCHEDULE" default:"@daily"`
}

func DefaultConfig() Config {
	return Config{
		DispatcherMaxTokens: 256,
		SpecialistMaxTokens: 800,
		SynthesisMaxTokens:  512,
		MaxRouteHops:        2,
		Mode:                "ai",
		DefaultCustomerID:   "1001",
		IdleTimeout:         30 * time.Minute,
		SweepSchedule:       "@every 1m",
		RetentionDays:       90,
		RetentionSchedule:   "@daily",
	}
}

func (c Config) Validate() error {
	if c.DispatcherMaxTokens <= 0 || c.SpecialistMaxTokens <= 0 || c.SynthesisMaxTokens <= 0 {
		return errors.New("token budgets must be positive")
	}
	if c.MaxRouteHops < 0 {
		return errors.New("max route hops must not be negative")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle timeout must not be negative")
	}
	if c.RetentionDays < 0 {
		return errors.New("retention days must not be negative")
	}
	for name, spec := range map[string]string{
		"sweep schedule":     c.SweepSchedule,
		"retention schedule": c.RetentionSchedule,
	} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}

func (c Config) budgets() nodex.Budgets {
	return nodex.Budgets{
		Dispatcher: c.DispatcherMaxTokens,
		Specialist: c.SpecialistMaxTokens,
		Synthesis:  c.SynthesisMaxTokens,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DispatcherMaxTokens <= 0 {
		c.DispatcherMaxTokens = def.DispatcherMaxTokens
	}
	if c.SpecialistMaxTokens <= 0 {
		c.SpecialistMaxTokens = def.SpecialistMaxTokens
	}
	if c.SynthesisMaxTokens <= 0 {
		c.SynthesisMaxTokens = def.SynthesisMaxTokens
	}
	if strings.TrimSpace(c.Mode) == "" {
		c.Mode = def.Mode
	}
	return c
}
