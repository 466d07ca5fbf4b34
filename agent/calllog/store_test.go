package calllog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	databasex "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := databasex.Open(context.Background(), databasex.Config{
		Driver: databasex.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)
	require.NoError(t, store.CreateTables(context.Background()))
	// idempotent
	require.NoError(t, store.CreateTables(context.Background()))
	return store
}

func TestStoreSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	id, err := store.CreateSession(ctx, "1001", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.AddMessage(ctx, contractx.MessageRecord{
		SessionID: id, Role: contractx.RoleSystem, Content: "Görüşme başladı - Müşteri: 1001",
	}))
	require.NoError(t, store.AddMessage(ctx, contractx.MessageRecord{
		SessionID: id, Role: contractx.RoleUser, Content: "faturamı ödemek istiyorum",
		Timestamp: start.Add(time.Second),
	}))
	require.NoError(t, store.AddMessage(ctx, contractx.MessageRecord{
		SessionID: id, Role: contractx.RoleAssistant, Content: "Faturanız ödendi.",
		MessageType: contractx.MessageTypeToolCall, ToolName: "pay_bill", ToolResult: "Fatura başarıyla ödendi",
		Duration: 1500 * time.Millisecond, Timestamp: start.Add(2 * time.Second),
	}))
	require.NoError(t, store.LogToolUsage(ctx, contractx.ToolInvocation{
		SessionID: id, ToolName: "pay_bill",
		Parameters: map[string]any{"customer_id": "1001", "month": "2025-07", "amount": 150.0},
		Result:     "Fatura başarıyla ödendi", Success: true, Duration: 120 * time.Millisecond,
	}))

	satisfaction := 5
	require.NoError(t, store.EndSession(ctx, contractx.SessionEnd{
		SessionID: id, Resolution: "resolved", Satisfaction: &satisfaction, Notes: "ödeme alındı",
		EndedAt: start.Add(3 * time.Minute),
	}))

	h, err := store.SessionHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, h.Session.Status)
	assert.Equal(t, "resolved", h.Session.ResolutionStatus)
	require.NotNil(t, h.Session.DurationSeconds)
	assert.Equal(t, int64(180), *h.Session.DurationSeconds)
	require.NotNil(t, h.Session.CustomerSatisfaction)
	assert.Equal(t, 5, *h.Session.CustomerSatisfaction)

	require.Len(t, h.Messages, 3)
	assert.Equal(t, "system", h.Messages[0].Role)
	assert.Equal(t, contractx.MessageTypeNormal, h.Messages[0].MessageType)
	assert.Equal(t, "pay_bill", h.Messages[2].ToolCall)
	require.NotNil(t, h.Messages[2].ProcessingTimeMS)
	assert.Equal(t, int64(1500), *h.Messages[2].ProcessingTimeMS)

	require.Len(t, h.ToolUsage, 1)
	assert.True(t, h.ToolUsage[0].Success)
	assert.Equal(t, "1001", h.ToolUsage[0].Parameters["customer_id"])
	assert.Equal(t, 150.0, h.ToolUsage[0].Parameters["amount"])
}

func TestStoreEndSessionErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	err := store.EndSession(ctx, contractx.SessionEnd{SessionID: "missing"})
	require.ErrorIs(t, err, contractx.ErrSessionNotFound)

	id, err := store.CreateSession(ctx, "", "ai")
	require.NoError(t, err)
	require.NoError(t, store.EndSession(ctx, contractx.SessionEnd{SessionID: id, Resolution: contractx.ResolutionAbandoned}))
	require.ErrorIs(t, store.EndSession(ctx, contractx.SessionEnd{SessionID: id}), contractx.ErrSessionEnded)

	h, err := store.SessionHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, h.Session.Status)

	_, err = store.SessionHistory(ctx, "missing")
	require.ErrorIs(t, err, contractx.ErrSessionNotFound)
}

func TestStorePurgeBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return old }
	closedOld, err := store.CreateSession(ctx, "1001", "ai")
	require.NoError(t, err)
	require.NoError(t, store.AddMessage(ctx, contractx.MessageRecord{SessionID: closedOld, Role: contractx.RoleUser, Content: "x"}))
	require.NoError(t, store.LogError(ctx, contractx.ErrorRecord{SessionID: closedOld, Kind: "process_message_error", Message: "boom", Severity: contractx.SeverityHigh}))
	require.NoError(t, store.EndSession(ctx, contractx.SessionEnd{SessionID: closedOld, Resolution: "resolved"}))

	activeOld, err := store.CreateSession(ctx, "1002", "ai")
	require.NoError(t, err)

	store.now = func() time.Time { return recent }
	closedRecent, err := store.CreateSession(ctx, "1003", "ai")
	require.NoError(t, err)
	require.NoError(t, store.EndSession(ctx, contractx.SessionEnd{SessionID: closedRecent, Resolution: "resolved"}))

	removed, err := store.PurgeBefore(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.SessionHistory(ctx, closedOld)
	require.ErrorIs(t, err, contractx.ErrSessionNotFound)
	_, err = store.SessionHistory(ctx, activeOld)
	require.NoError(t, err)
	_, err = store.SessionHistory(ctx, closedRecent)
	require.NoError(t, err)

	count, err := store.db.NewSelect().Model((*CallMessage)(nil)).Where("session_id = ?", closedOld).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	removed, err = store.PurgeBefore(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStoreCustomerHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		id, err := store.CreateSession(ctx, "1001", "ai")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := store.CreateSession(ctx, "2002", "ai")
	require.NoError(t, err)
	require.NoError(t, store.EndSession(ctx, contractx.SessionEnd{SessionID: ids[0], Resolution: contractx.ResolutionResolved}))

	got, err := store.CustomerHistory(ctx, "1001", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{got[0].SessionID, got[1].SessionID, got[2].SessionID})
	assert.Equal(t, StatusCompleted, got[2].Status)
	assert.Equal(t, StatusActive, got[0].Status)

	limited, err := store.CustomerHistory(ctx, "1001", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[2], limited[0].SessionID)

	none, err := store.CustomerHistory(ctx, "9999", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.CustomerHistory(ctx, "  ", 5)
	require.ErrorIs(t, err, contractx.ErrValidation)
}

func TestDiscardSink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var sink contractx.LogSink = Discard{}

	a, err := sink.CreateSession(ctx, "1001", "ai")
	require.NoError(t, err)
	b, err := sink.CreateSession(ctx, "1001", "ai")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	assert.NoError(t, sink.AddMessage(ctx, contractx.MessageRecord{SessionID: a}))
	assert.NoError(t, sink.LogToolUsage(ctx, contractx.ToolInvocation{SessionID: a}))
	assert.NoError(t, sink.EndSession(ctx, contractx.SessionEnd{SessionID: a}))
	assert.NoError(t, sink.LogError(ctx, contractx.ErrorRecord{SessionID: a}))
}
