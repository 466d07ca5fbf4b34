package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	openaicompatx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/openaicompat"
)

// Replies returned in place of model output when the call cannot complete.
const (
	ReplyEmpty       = "Yanıt alınamadı"
	ReplyTimeout     = "Sistem yanıt vermiyor, lütfen tekrar deneyin"
	ReplyUnreachable = "Model sunucusuna bağlanılamıyor."
	ReplyFailed      = "Bağlantı hatası oluştu"
)

var _ contractx.CompletionClient = (*Client)(nil)

type Client struct {
	sdk         openaisdk.Client
	model       string
	temperature float64
}

func NewClient(cfg Config, opts ...option.RequestOption) *Client {
	return &Client{
		sdk:         openaicompatx.NewClient(cfg.compat(), opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}
}

// Complete sends one non-streaming chat completion. It never fails; every
// error path degrades to one of the Reply constants.
func (c *Client) Complete(ctx context.Context, messages []*schema.Message, maxTokens int) string {
	if len(messages) == 0 || messages[0] == nil || messages[0].Role != schema.System {
		log.Error().Int("messages", len(messages)).Msg("completion request must start with a system message")
		return ReplyFailed
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    toSDKMessages(messages),
		Temperature: openaisdk.Float(c.temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(maxTokens))
	}

	log.Debug().Str("model", c.model).Int("messages", len(messages)).Int("max_tokens", maxTokens).Msg("calling completion endpoint")

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return degrade(err)
	}

	if len(resp.Choices) == 0 {
		return ReplyEmpty
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return ReplyEmpty
	}
	return content
}

// Ping checks that the endpoint answers a minimal completion.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage("Yalnızca 'tamam' yaz."),
			openaisdk.UserMessage("ping"),
		},
		MaxTokens: openaisdk.Int(5),
	})
	return err
}

func toSDKMessages(messages []*schema.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case schema.Assistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func degrade(err error) string {
	if isTimeout(err) {
		log.Warn().Err(err).Msg("completion request timed out")
		return ReplyTimeout
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		log.Error().Int("status", apiErr.StatusCode).Str("body", apiErr.RawJSON()).Msg("completion endpoint returned an error")
		return ReplyFailed
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		log.Error().Err(err).Msg("completion endpoint unreachable")
		return ReplyUnreachable
	}

	log.Error().Err(err).Msg("completion request failed")
	return ReplyFailed
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
