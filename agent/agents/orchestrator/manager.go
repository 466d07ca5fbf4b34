package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
)

// Turn is the outcome of one Send.
type Turn struct {
	SessionID  string       `json:"session_id"`
	Response   string       `json:"response"`
	Layer      statex.Layer `json:"layer"`
	Specialist string       `json:"specialist,omitempty"`
}

type entry struct {
	mu         sync.Mutex
	orch       *Orchestrator
	lastActive time.Time
	ended      bool
}

// Manager is the session table used by the network transports. Turns of one
// session run one at a time; different sessions run in parallel.
type Manager struct {
	proto *Orchestrator
	store statex.Store

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

func NewManager(proto *Orchestrator, store statex.Store) *Manager {
	if store == nil {
		store = statex.NewMemoryStore()
	}
	return &Manager{
		proto:   proto,
		store:   store,
		entries: make(map[string]*entry),
		now:     proto.now,
	}
}

func (m *Manager) Start(ctx context.Context, customerID string) (string, error) {
	orch := m.proto.Spawn()
	sessionID, err := orch.StartSession(ctx, customerID)
	if err != nil {
		return "", err
	}

	e := &entry{orch: orch, lastActive: m.now()}
	m.mu.Lock()
	m.entries[sessionID] = e
	m.mu.Unlock()

	m.save(ctx, orch)
	return sessionID, nil
}

func (m *Manager) Send(ctx context.Context, sessionID, text string) (Turn, error) {
	e, err := m.acquire(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}
	defer e.mu.Unlock()

	reply := e.orch.ProcessMessage(ctx, text)
	e.lastActive = m.now()
	m.save(ctx, e.orch)

	snap := e.orch.Snapshot()
	return Turn{
		SessionID:  sessionID,
		Response:   reply,
		Layer:      snap.Layer,
		Specialist: snap.ActiveSpecialist,
	}, nil
}

func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	e, err := m.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	e.orch.ResetConversation()
	e.lastActive = m.now()
	m.save(ctx, e.orch)
	return nil
}

func (m *Manager) End(ctx context.Context, sessionID, resolution string, satisfaction *int, notes string) error {
	e, err := m.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	return m.endLocked(ctx, sessionID, e, resolution, satisfaction, notes)
}

// Get returns a copy of the live session.
func (m *Manager) Get(ctx context.Context, sessionID string) (statex.Session, error) {
	e, err := m.acquire(ctx, sessionID)
	if err != nil {
		return statex.Session{}, err
	}
	defer e.mu.Unlock()
	return e.orch.Snapshot(), nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// SweepIdle ends every session without a turn for longer than idle, recording
// them as abandoned. Sessions busy with a turn are skipped.
func (m *Manager) SweepIdle(ctx context.Context, idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	candidates := make(map[string]*entry)
	for id, e := range m.entries {
		candidates[id] = e
	}
	m.mu.Unlock()

	swept := 0
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		if e.ended || e.lastActive.After(cutoff) {
			e.mu.Unlock()
			continue
		}
		err := m.endLocked(ctx, id, e, contractx.ResolutionAbandoned, nil, "idle timeout")
		e.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("abandon idle session failed")
			continue
		}
		swept++
	}
	return swept
}

// acquire returns the locked entry for sessionID, rehydrating it from the
// state store when it is not in memory.
func (m *Manager) acquire(ctx context.Context, sessionID string) (*entry, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	e, err := m.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionEnded, sessionID)
	}
	return e, nil
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.entries[sessionID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	orch := m.proto.Spawn()
	if err := orch.Resume(sess); err != nil {
		return nil, fmt.Errorf("resume session %s: %w", sessionID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[sessionID]; ok {
		return existing, nil
	}
	e = &entry{orch: orch, lastActive: m.now()}
	m.entries[sessionID] = e
	log.Info().Str("session_id", sessionID).Msg("session rehydrated")
	return e, nil
}

func (m *Manager) endLocked(ctx context.Context, sessionID string, e *entry, resolution string, satisfaction *int, notes string) error {
	err := e.orch.EndSession(ctx, resolution, satisfaction, notes)
	e.ended = true

	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()

	if delErr := m.store.Delete(ctx, sessionID); delErr != nil {
		log.Warn().Err(delErr).Str("session_id", sessionID).Msg("delete session state failed")
	}
	return err
}

func (m *Manager) save(ctx context.Context, orch *Orchestrator) {
	snap := orch.Snapshot()
	if snap.SessionID == "" {
		return
	}
	if err := m.store.Save(ctx, &snap); err != nil {
		log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("save session state failed")
	}
}
