package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

// recordMessage writes one row to the session log. Sink failures are logged and
// dropped so they never change the turn's outcome.
func recordMessage(ctx context.Context, sink contractx.LogSink, rec contractx.MessageRecord) {
	if sink == nil {
		return
	}
	if rec.MessageType == "" {
		rec.MessageType = contractx.MessageTypeNormal
	}
	if err := sink.AddMessage(ctx, rec); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", rec.SessionID).
			Str("role", string(rec.Role)).
			Msg("session log write failed")
	}
}
