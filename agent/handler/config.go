package handler

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

// Config is loaded with the HTTP prefix.
type Config struct {
	Addr              string        `default:":8080"`
	ReadHeaderTimeout time.Duration `split_words:"true" default:"5s"`
	IdleTimeout       time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout   time.Duration `split_words:"true" default:"10s"`
	WSReadTimeout     time.Duration `envconfig:"WS_READ_TIMEOUT" default:"60s"`
}

func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		WSReadTimeout:     60 * time.Second,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: http addr is required", contractx.ErrValidation)
	}
	if c.ReadHeaderTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0 || c.WSReadTimeout < 0 {
		return fmt.Errorf("%w: http timeouts must not be negative", contractx.ErrValidation)
	}
	return nil
}
