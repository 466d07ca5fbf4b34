package calllog

import (
	"time"

	"github.com/uptrace/bun"
)

// Session statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

type CallSession struct {
	bun.BaseModel `bun:"table:call_sessions,alias:cs"`

	SessionID            string     `bun:"session_id,pk" json:"session_id"`
	CustomerID           string     `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	StartTime            time.Time  `bun:"start_time,notnull" json:"start_time"`
	EndTime              *time.Time `bun:"end_time" json:"end_time,omitempty"`
	DurationSeconds      *int64     `bun:"duration_seconds" json:"duration_seconds,omitempty"`
	Status               string     `bun:"status,notnull" json:"status"`
	AgentMode            string     `bun:"agent_mode,notnull" json:"agent_mode"`
	CustomerSatisfaction *int       `bun:"customer_satisfaction" json:"customer_satisfaction,omitempty"`
	ResolutionStatus     string     `bun:"resolution_status,nullzero" json:"resolution_status,omitempty"`
	Notes                string     `bun:"notes,nullzero" json:"notes,omitempty"`
}

type CallMessage struct {
	bun.BaseModel `bun:"table:call_messages,alias:cm"`

	MessageID        int64     `bun:"message_id,pk,autoincrement" json:"message_id"`
	SessionID        string    `bun:"session_id,notnull" json:"session_id"`
	Role             string    `bun:"role,notnull" json:"role"`
	Content          string    `bun:"content,notnull" json:"content"`
	Timestamp        time.Time `bun:"timestamp,notnull" json:"timestamp"`
	MessageType      string    `bun:"message_type,notnull" json:"message_type"`
	ToolCall         string    `bun:"tool_call,nullzero" json:"tool_call,omitempty"`
	ToolResult       string    `bun:"tool_result,nullzero" json:"tool_result,omitempty"`
	ProcessingTimeMS *int64    `bun:"processing_time_ms" json:"processing_time_ms,omitempty"`
}

type ToolUsageLog struct {
	bun.BaseModel `bun:"table:tool_usage_logs,alias:tu"`

	LogID           int64          `bun:"log_id,pk,autoincrement" json:"log_id"`
	SessionID       string         `bun:"session_id,notnull" json:"session_id"`
	ToolName        string         `bun:"tool_name,notnull" json:"tool_name"`
	Parameters      map[string]any `bun:"parameters,type:jsonb" json:"parameters"`
	Result          string         `bun:"result" json:"result"`
	ExecutionTimeMS int64          `bun:"execution_time_ms" json:"execution_time_ms"`
	Success         bool           `bun:"success,notnull" json:"success"`
	ErrorMessage    string         `bun:"error_message,nullzero" json:"error_message,omitempty"`
	Timestamp       time.Time      `bun:"timestamp,notnull" json:"timestamp"`
}

type ErrorLog struct {
	bun.BaseModel `bun:"table:error_logs,alias:el"`

	ErrorID      int64     `bun:"error_id,pk,autoincrement" json:"error_id"`
	SessionID    string    `bun:"session_id,nullzero" json:"session_id,omitempty"`
	ErrorType    string    `bun:"error_type,notnull" json:"error_type"`
	ErrorMessage string    `bun:"error_message,notnull" json:"error_message"`
	StackTrace   string    `bun:"stack_trace,nullzero" json:"stack_trace,omitempty"`
	Severity     string    `bun:"severity,notnull" json:"severity"`
	Resolved     bool      `bun:"resolved,notnull" json:"resolved"`
	Timestamp    time.Time `bun:"timestamp,notnull" json:"timestamp"`
}

// History is a persisted session with its messages and tool usage.
type History struct {
	Session   CallSession    `json:"session"`
	Messages  []CallMessage  `json:"messages"`
	ToolUsage []ToolUsageLog `json:"tool_usage"`
}
