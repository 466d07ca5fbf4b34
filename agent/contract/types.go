package contract

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message types recorded with persisted messages.
const (
	MessageTypeNormal     = "normal"
	MessageTypeToolCall   = "tool_call"
	MessageTypeTransition = "transition"
)

// Severity values used by LogError.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type MessageRecord struct {
	SessionID   string
	Role        Role
	Content     string
	MessageType string
	ToolName    string
	ToolResult  string
	Duration    time.Duration
	Timestamp   time.Time
}

// ToolInvocation is written once per execution attempt, successful or not.
type ToolInvocation struct {
	SessionID  string
	ToolName   string
	Parameters map[string]any
	Result     string
	Success    bool
	Duration   time.Duration
	Error      string
	Timestamp  time.Time
}

// Resolution values recorded by EndSession. Idle sessions are closed as
// abandoned.
const (
	ResolutionResolved  = "resolved"
	ResolutionAbandoned = "abandoned"
)

type SessionEnd struct {
	SessionID    string
	Resolution   string
	Satisfaction *int
	Notes        string
	EndedAt      time.Time
}

type ErrorRecord struct {
	SessionID string
	Kind      string
	Message   string
	Trace     string
	Severity  string
	Timestamp time.Time
}
