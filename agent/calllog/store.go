// Package calllog persists call sessions, messages, tool usage and errors.
package calllog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

var _ contractx.LogSink = (*Store)(nil)

var models = []any{
	(*CallSession)(nil),
	(*CallMessage)(nil),
	(*ToolUsageLog)(nil),
	(*ErrorLog)(nil),
}

// Store is the bun-backed LogSink.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// CreateTables creates the schema if it does not exist yet.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*CallSession)(nil), "idx_call_sessions_customer", "customer_id"},
		{(*CallSession)(nil), "idx_call_sessions_start", "start_time"},
		{(*CallMessage)(nil), "idx_call_messages_session", "session_id"},
		{(*ToolUsageLog)(nil), "idx_tool_usage_session", "session_id"},
		{(*ErrorLog)(nil), "idx_error_logs_session", "session_id"},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, customerID, mode string) (string, error) {
	if strings.TrimSpace(mode) == "" {
		mode = "ai"
	}
	row := &CallSession{
		SessionID:  uuid.NewString(),
		CustomerID: strings.TrimSpace(customerID),
		StartTime:  s.now().UTC(),
		Status:     StatusActive,
		AgentMode:  mode,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert call session: %w", err)
	}
	log.Info().Str("session_id", row.SessionID).Str("customer_id", row.CustomerID).Msg("call session created")
	return row.SessionID, nil
}

func (s *Store) AddMessage(ctx context.Context, rec contractx.MessageRecord) error {
	row := &CallMessage{
		SessionID:   rec.SessionID,
		Role:        string(rec.Role),
		Content:     rec.Content,
		Timestamp:   s.stamp(rec.Timestamp),
		MessageType: rec.MessageType,
		ToolCall:    rec.ToolName,
		ToolResult:  rec.ToolResult,
	}
	if row.MessageType == "" {
		row.MessageType = contractx.MessageTypeNormal
	}
	if rec.Duration > 0 {
		ms := rec.Duration.Milliseconds()
		row.ProcessingTimeMS = &ms
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert call message: %w", err)
	}
	return nil
}

func (s *Store) LogToolUsage(ctx context.Context, inv contractx.ToolInvocation) error {
	row := &ToolUsageLog{
		SessionID:       inv.SessionID,
		ToolName:        inv.ToolName,
		Parameters:      inv.Parameters,
		Result:          inv.Result,
		ExecutionTimeMS: inv.Duration.Milliseconds(),
		Success:         inv.Success,
		ErrorMessage:    inv.Error,
		Timestamp:       s.stamp(inv.Timestamp),
	}
	if row.Parameters == nil {
		row.Parameters = map[string]any{}
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert tool usage: %w", err)
	}
	return nil
}

// EndSession closes an active session. Abandoned resolutions set the abandoned
// status; anything else completes the session.
func (s *Store) EndSession(ctx context.Context, end contractx.SessionEnd) error {
	row := new(CallSession)
	err := s.db.NewSelect().Model(row).Where("session_id = ?", end.SessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, end.SessionID)
	}
	if err != nil {
		return fmt.Errorf("load call session: %w", err)
	}
	if row.Status != StatusActive {
		return fmt.Errorf("%w: %s", contractx.ErrSessionEnded, end.SessionID)
	}

	endedAt := s.stamp(end.EndedAt)
	duration := int64(endedAt.Sub(row.StartTime) / time.Second)
	if duration < 0 {
		duration = 0
	}

	row.EndTime = &endedAt
	row.DurationSeconds = &duration
	row.Status = StatusCompleted
	if end.Resolution == contractx.ResolutionAbandoned {
		row.Status = StatusAbandoned
	}
	row.ResolutionStatus = end.Resolution
	row.CustomerSatisfaction = end.Satisfaction
	row.Notes = end.Notes

	_, err = s.db.NewUpdate().
		Model(row).
		Column("end_time", "duration_seconds", "status", "resolution_status", "customer_satisfaction", "notes").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update call session: %w", err)
	}
	log.Info().Str("session_id", end.SessionID).Str("status", row.Status).Int64("duration_seconds", duration).Msg("call session ended")
	return nil
}

func (s *Store) LogError(ctx context.Context, rec contractx.ErrorRecord) error {
	row := &ErrorLog{
		SessionID:    rec.SessionID,
		ErrorType:    rec.Kind,
		ErrorMessage: rec.Message,
		StackTrace:   rec.Trace,
		Severity:     rec.Severity,
		Timestamp:    s.stamp(rec.Timestamp),
	}
	if row.Severity == "" {
		row.Severity = contractx.SeverityMedium
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}

// SessionHistory returns the persisted record of one session.
func (s *Store) SessionHistory(ctx context.Context, sessionID string) (*History, error) {
	h := new(History)
	err := s.db.NewSelect().Model(&h.Session).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load call session: %w", err)
	}

	if err := s.db.NewSelect().Model(&h.Messages).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC", "message_id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load call messages: %w", err)
	}
	if err := s.db.NewSelect().Model(&h.ToolUsage).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC", "log_id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load tool usage: %w", err)
	}
	return h, nil
}

// Limits for CustomerHistory.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// CustomerHistory lists the customer's sessions, newest first. A limit outside
// 1..MaxHistoryLimit falls back to the nearest bound or to the default.
func (s *Store) CustomerHistory(ctx context.Context, customerID string, limit int) ([]CallSession, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is empty", contractx.ErrValidation)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	sessions := make([]CallSession, 0, limit)
	if err := s.db.NewSelect().Model(&sessions).
		Where("customer_id = ?", customerID).
		OrderExpr("start_time DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load customer history: %w", err)
	}
	return sessions, nil
}

// PurgeBefore deletes closed sessions started before cutoff together with
// their messages, tool usage and errors. It returns the number of sessions
// removed.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var ids []string
		if err := tx.NewSelect().
			Model((*CallSession)(nil)).
			Column("session_id").
			Where("start_time < ?", cutoff.UTC()).
			Where("status != ?", StatusActive).
			Scan(ctx, &ids); err != nil {
			return fmt.Errorf("select expired sessions: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		for _, model := range []any{(*CallMessage)(nil), (*ToolUsageLog)(nil), (*ErrorLog)(nil), (*CallSession)(nil)} {
			if _, err := tx.NewDelete().Model(model).Where("session_id IN (?)", bun.In(ids)).Exec(ctx); err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int("sessions", removed).Time("cutoff", cutoff).Msg("purged old call logs")
	}
	return removed, nil
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}
