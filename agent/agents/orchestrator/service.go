package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	nodex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/nodes"
	promptx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/prompt"
	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

const (
	ReplyApology      = "Üzgünüm, şu anda bir teknik sorun yaşıyorum. Lütfen tekrar deneyin."
	ReplyEmptyMessage = "Sizi anlayamadım, lütfen talebinizi yazar mısınız?"

	errorKindProcessMessage = "process_message_error"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Deps are shared by every session. None of them hold per-session state.
type Deps struct {
	Registry   *toolx.Registry
	Prompts    *promptx.Builder
	Completion contractx.CompletionClient
	Tools      contractx.ToolExecutor
	Sink       contractx.LogSink
}

type engine struct {
	deps Deps
	cfg  Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

// Orchestrator runs the dialogue of a single call. It is not safe for
// concurrent use; Manager serializes turns per session.
type Orchestrator struct {
	*engine

	session *statex.Session
}

type Option func(*engine)

func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if deps.Completion == nil {
		return nil, errors.New("completion client is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("log sink is required")
	}
	if deps.Prompts == nil {
		prompts, err := promptx.NewBuilder(deps.Registry)
		if err != nil {
			return nil, fmt.Errorf("build prompts: %w", err)
		}
		deps.Prompts = prompts
	}

	e := &engine{
		deps: deps,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	graphRunner, err := e.compileProcessMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return &Orchestrator{engine: e}, nil
}

// Spawn returns an orchestrator without a session that shares the compiled
// graph and collaborators of o.
func (o *Orchestrator) Spawn() *Orchestrator {
	return &Orchestrator{engine: o.engine}
}

/* --------------------------------- Lifecycle -------------------------------- */

// StartSession opens a new log record and resets the dialogue to the
// dispatcher with an empty history.
func (o *Orchestrator) StartSession(ctx context.Context, customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	sessionID, err := o.deps.Sink.CreateSession(ctx, customerID, o.cfg.Mode)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	now := o.now()
	o.session = statex.NewSession(sessionID, customerID, now)

	shown := customerID
	if shown == "" {
		shown = "Bilinmiyor"
	}
	o.recordSystem(ctx, "Görüşme başladı - Müşteri: "+shown, contractx.MessageTypeNormal, now)

	log.Info().
		Str("session_id", sessionID).
		Str("customer_id", customerID).
		Str("layer", string(o.session.Layer)).
		Msg("session started")
	return sessionID, nil
}

// Resume adopts a previously saved session, e.g. one rehydrated from a state
// store.
func (o *Orchestrator) Resume(sess *statex.Session) error {
	if sess == nil {
		return ErrInvalidSession
	}
	if err := sess.Validate(o.deps.Registry); err != nil {
		return err
	}
	o.session = sess.Clone()
	return nil
}

// EndSession finalizes the log record and forgets the session, including the
// bound customer id. The next ProcessMessage starts a new session.
func (o *Orchestrator) EndSession(ctx context.Context, resolution string, satisfaction *int, notes string) error {
	if o.session == nil {
		return contractx.ErrSessionNotFound
	}
	if strings.TrimSpace(resolution) == "" {
		resolution = contractx.ResolutionResolved
	}

	sessionID := o.session.SessionID
	o.session = nil

	err := o.deps.Sink.EndSession(ctx, contractx.SessionEnd{
		SessionID:    sessionID,
		Resolution:   resolution,
		Satisfaction: satisfaction,
		Notes:        notes,
		EndedAt:      o.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("end session log write failed")
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("resolution", resolution).
		Msg("session ended")
	return nil
}

// ResetConversation clears the live history only.
func (o *Orchestrator) ResetConversation() {
	if o.session == nil {
		return
	}
	o.session.ResetHistory()
	log.Info().
		Str("session_id", o.session.SessionID).
		Str("layer", string(o.session.Layer)).
		Msg("conversation history reset")
}

// Snapshot returns a copy of the live session; the zero value when none is
// active.
func (o *Orchestrator) Snapshot() statex.Session {
	if o.session == nil {
		return statex.Session{}
	}
	return *o.session.Clone()
}

func (o *Orchestrator) SessionID() string {
	if o.session == nil {
		return ""
	}
	return o.session.SessionID
}

/* ----------------------------------- Turns ---------------------------------- */

// ProcessMessage runs one user turn and always returns text for the caller.
// A failing turn leaves the session exactly as it was before the turn.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text string) (reply string) {
	started := o.now()

	if strings.TrimSpace(text) == "" {
		return ReplyEmptyMessage
	}
	if o.session == nil {
		if _, err := o.StartSession(ctx, ""); err != nil {
			log.Error().Err(err).Msg("auto start session failed")
			return ReplyApology
		}
	}

	snapshot := o.session.Clone()
	defer func() {
		if r := recover(); r != nil {
			reply = o.failTurn(ctx, snapshot, fmt.Errorf("panic: %v", r), string(debug.Stack()))
		}
	}()

	reply, err := o.runTurn(ctx, text, started)
	if err != nil {
		return o.failTurn(ctx, snapshot, err, string(debug.Stack()))
	}

	log.Info().
		Str("session_id", o.session.SessionID).
		Str("layer", string(o.session.Layer)).
		Str("specialist", o.session.ActiveSpecialist).
		Int64("duration_ms", o.now().Sub(started).Milliseconds()).
		Msg("turn completed")
	return reply
}

// runTurn replays the user text after each routing call, at most MaxRouteHops
// times.
func (o *Orchestrator) runTurn(ctx context.Context, text string, started time.Time) (string, error) {
	for hop := 0; ; hop++ {
		out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
			Session: o.session,
			Text:    text,
			Hop:     hop,
			Started: started,
		})
		if err != nil {
			return "", err
		}
		if !out.Rerouted {
			return out.Reply, nil
		}
		if hop >= o.cfg.MaxRouteHops {
			log.Warn().
				Str("session_id", o.session.SessionID).
				Int("hops", hop+1).
				Msg("route hop limit reached")
			return out.Reply, nil
		}
	}
}

func (o *Orchestrator) failTurn(ctx context.Context, snapshot *statex.Session, err error, trace string) string {
	o.session = snapshot

	log.Error().
		Err(err).
		Str("session_id", snapshot.SessionID).
		Str("trace", trace).
		Msg("process message failed")

	if logErr := o.deps.Sink.LogError(ctx, contractx.ErrorRecord{
		SessionID: snapshot.SessionID,
		Kind:      errorKindProcessMessage,
		Message:   "İşlem sırasında hata oluştu: " + err.Error(),
		Trace:     trace,
		Severity:  contractx.SeverityHigh,
		Timestamp: o.now(),
	}); logErr != nil {
		log.Warn().Err(logErr).Str("session_id", snapshot.SessionID).Msg("error log write failed")
	}
	return ReplyApology
}

func (o *Orchestrator) recordSystem(ctx context.Context, content, messageType string, now time.Time) {
	err := o.deps.Sink.AddMessage(ctx, contractx.MessageRecord{
		SessionID:   o.session.SessionID,
		Role:        contractx.RoleSystem,
		Content:     content,
		MessageType: messageType,
		Timestamp:   now,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", o.session.SessionID).Msg("session log write failed")
	}
}
