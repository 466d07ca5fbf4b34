package calllog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

var _ contractx.LogSink = Discard{}

// Discard is the sink used without a database. It hands out session ids and
// mirrors records to the debug log.
type Discard struct{}

func (Discard) CreateSession(_ context.Context, customerID, mode string) (string, error) {
	id := uuid.NewString()
	log.Debug().Str("session_id", id).Str("customer_id", customerID).Str("mode", mode).Msg("session created")
	return id, nil
}

func (Discard) AddMessage(_ context.Context, rec contractx.MessageRecord) error {
	log.Debug().Str("session_id", rec.SessionID).Str("role", string(rec.Role)).Str("type", rec.MessageType).Msg("message")
	return nil
}

func (Discard) LogToolUsage(_ context.Context, inv contractx.ToolInvocation) error {
	log.Debug().Str("session_id", inv.SessionID).Str("tool", inv.ToolName).Bool("success", inv.Success).Msg("tool usage")
	return nil
}

func (Discard) EndSession(_ context.Context, end contractx.SessionEnd) error {
	log.Debug().Str("session_id", end.SessionID).Str("resolution", end.Resolution).Msg("session ended")
	return nil
}

func (Discard) LogError(_ context.Context, rec contractx.ErrorRecord) error {
	log.Debug().Str("session_id", rec.SessionID).Str("kind", rec.Kind).Str("severity", rec.Severity).Msg("error")
	return nil
}
