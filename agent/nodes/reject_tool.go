package orchestratornode

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

const ReplyToolNotAllowed = "Üzgünüm, bu işlemi bu bölümde gerçekleştiremiyorum. İsterseniz sizi ilgili uzmana yönlendirebilirim."

// toolAllowed reports whether the layer may run tool. The dispatcher has no
// domain tools.
func toolAllowed(registry *toolx.Registry, specialistID, tool string) bool {
	spec, ok := registry.Specialist(specialistID)
	return ok && spec.Allows(tool)
}

// RejectTool answers a call to a tool outside the active layer's subset
// without running it.
func RejectTool(ctx context.Context, in *GraphState, sink contractx.LogSink, nowFn func() time.Time) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}

	sess := in.Session
	log.Warn().
		Str("session_id", sess.SessionID).
		Str("layer", string(sess.Layer)).
		Str("specialist", sess.ActiveSpecialist).
		Str("tool", in.ToolName).
		Msg("tool call outside layer subset rejected")

	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID: sess.SessionID,
		Role:      contractx.RoleAssistant,
		Content:   ReplyToolNotAllowed,
		ToolName:  in.ToolName,
		Duration:  nowFn().Sub(in.Started),
		Timestamp: in.Now,
	})
	return finalizeReply(in, ReplyToolNotAllowed), nil
}
