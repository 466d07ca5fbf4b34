package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// LogSink is the append-only session log. Callers treat its errors as
// non-fatal.
type LogSink interface {
	CreateSession(ctx context.Context, customerID, mode string) (string, error)
	AddMessage(ctx context.Context, rec MessageRecord) error
	LogToolUsage(ctx context.Context, inv ToolInvocation) error
	EndSession(ctx context.Context, end SessionEnd) error
	LogError(ctx context.Context, rec ErrorRecord) error
}

// CompletionClient never fails: transport problems come back as fixed text.
// The first message must be the system prompt.
type CompletionClient interface {
	Complete(ctx context.Context, messages []*schema.Message, maxTokens int) string
}

type ToolExecutor interface {
	Execute(ctx context.Context, sessionID, toolName string, params map[string]any) (string, bool)
}
