// Package openaicompat builds openai-go clients for OpenAI-compatible chat
// endpoints such as LM Studio, OpenRouter or a local vLLM server.
package openaicompat

import (
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// placeholderAPIKey is sent to local servers that ignore authentication.
const placeholderAPIKey = "lm-studio"

type Config struct {
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"http://127.0.0.1:1234/v1"`
	APIKey   string        `envconfig:"API_KEY" split_words:"true"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"300s"`
	SiteURL  string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName string        `envconfig:"SITE_NAME" split_words:"true"`
}

// NewClient creates an openai-go client bound to cfg. SDK retries are disabled:
// every completion is a single attempt.
func NewClient(cfg Config, extra ...option.RequestOption) openaisdk.Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}

	if base := NormalizeBaseURL(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts,
			option.WithRequestTimeout(cfg.Timeout),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
	}

	// OpenRouter attribution headers; ignored by other servers.
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	opts = append(opts, extra...)
	return openaisdk.NewClient(opts...)
}

// NormalizeBaseURL trims the value and guarantees a trailing slash so relative
// endpoint paths resolve under it.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimRight(trimmed, "/") + "/"
}
