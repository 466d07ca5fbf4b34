package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/toolcall"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session is missing")
)

// Stage tracks where a turn is in the two-phase completion loop.
type Stage string

const (
	StageAwaitingCompletion Stage = "awaiting_completion"
	StageAwaitingToolResult Stage = "awaiting_tool_result"
	StageDone               Stage = "done"
)

type GraphInput struct {
	Session *statex.Session
	Text    string
	// Hop counts how many times this user text was replayed after a routing call.
	Hop int
	// Started is when the user turn began; replays keep the first value.
	Started time.Time
}

type GraphOutput struct {
	Reply string
	Stage Stage
	// Rerouted is set when the session moved to a new specialist and the same
	// user text should be processed again.
	Rerouted bool
}

type GraphState struct {
	Session *statex.Session
	Text    string
	Now     time.Time
	Started time.Time
	Hop     int

	MenuCommand bool

	Stage     Stage
	Messages  []*schema.Message
	MaxTokens int
	Raw       string
	Reply     toolcall.Reply

	ToolName    string
	ToolParams  map[string]any
	ToolResult  string
	ToolSuccess bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.Session == nil {
		return nil, ErrInvalidSession
	}
	if strings.TrimSpace(in.Session.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidSession)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	now := nowFn().UTC()
	started := in.Started
	if started.IsZero() {
		started = now
	}

	return &GraphState{
		Session: in.Session,
		Text:    text,
		Now:     now,
		Started: started,
		Hop:     in.Hop,
	}, nil
}

func requireState(in *GraphState) error {
	if in == nil {
		return fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return ErrInvalidSession
	}
	return nil
}
