package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	openaicompatx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/openaicompat"
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"http://127.0.0.1:1234/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gemma-3-12b-it"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"300s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: llm temperature must be within [0, 2]", contractx.ErrValidation)
	}
	return nil
}

func (c Config) compat() openaicompatx.Config {
	return openaicompatx.Config{
		BaseURL:  strings.TrimSpace(c.BaseURL),
		APIKey:   strings.TrimSpace(c.APIKey),
		Timeout:  c.Timeout,
		SiteURL:  strings.TrimSpace(c.SiteURL),
		SiteName: strings.TrimSpace(c.SiteName),
	}
}
