package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

const (
	ReplyAlreadyInMenu = "Zaten ana menüdesiniz. Nasıl yardımcı olabilirim?"
	ReplyBackToMenu    = "Ana menüye döndünüz. Başka bir konuda yardımcı olabilir miyim?"

	transitionToDispatcher = "Katman değiştirildi: Ana Menü (Dağıtıcı)"
)

// ReturnToDispatcher leaves the specialist layer and drops the live history.
// The acknowledgement goes to the session log only, so the next dispatcher
// turn starts from an empty history.
func ReturnToDispatcher(ctx context.Context, in *GraphState, sink contractx.LogSink) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}

	sess := in.Session
	previous := sess.ActiveSpecialist
	if !sess.ReturnToDispatcher(in.Now) {
		in.Stage = StageDone
		return GraphOutput{Reply: ReplyAlreadyInMenu, Stage: StageDone}, nil
	}
	sess.ResetHistory()

	log.Info().
		Str("session_id", sess.SessionID).
		Str("from", previous).
		Msg("layer switch: specialist -> dispatcher")

	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID:   sess.SessionID,
		Role:        contractx.RoleSystem,
		Content:     transitionToDispatcher,
		MessageType: contractx.MessageTypeTransition,
		Timestamp:   in.Now,
	})
	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID: sess.SessionID,
		Role:      contractx.RoleAssistant,
		Content:   ReplyBackToMenu,
		Timestamp: in.Now,
	})

	in.Stage = StageDone
	return GraphOutput{Reply: ReplyBackToMenu, Stage: StageDone}, nil
}
