package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

const ReplyUnknownSpecialist = "Üzgünüm, istenen uzman bulunamadı."

func WelcomeLine(name string) string {
	return fmt.Sprintf("Merhaba, ben %s. Talebiniz üzerine bu alana yönlendirildiniz.", name)
}

// RouteSpecialist applies a routing call. An unknown id leaves the layer as it
// is. A known id switches layers, clears the live history, greets the caller
// and asks for the same user text to be processed again.
func RouteSpecialist(ctx context.Context, in *GraphState, registry *toolx.Registry, sink contractx.LogSink) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}

	sess := in.Session
	id := toolx.StringParam(in.ToolParams, toolx.ParamSpecialist)
	spec, ok := registry.Specialist(id)
	if !ok {
		log.Warn().
			Str("session_id", sess.SessionID).
			Str("specialist", id).
			Msg("routing to unknown specialist")
		recordMessage(ctx, sink, contractx.MessageRecord{
			SessionID: sess.SessionID,
			Role:      contractx.RoleAssistant,
			Content:   ReplyUnknownSpecialist,
			ToolName:  in.ToolName,
			Timestamp: in.Now,
		})
		return finalizeReply(in, ReplyUnknownSpecialist), nil
	}

	previous := sess.ActiveSpecialist
	if err := sess.EnterSpecialist(spec.ID, in.Now); err != nil {
		return GraphOutput{}, err
	}
	sess.ResetHistory()

	log.Info().
		Str("session_id", sess.SessionID).
		Str("from", previous).
		Str("specialist", spec.ID).
		Int("hop", in.Hop).
		Msg("layer switch: specialist activated")

	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID:   sess.SessionID,
		Role:        contractx.RoleSystem,
		Content:     "Katman değiştirildi: Uzman -> " + spec.ID,
		MessageType: contractx.MessageTypeTransition,
		Timestamp:   in.Now,
	})

	welcome := WelcomeLine(spec.Name)
	out := finalizeReply(in, welcome)
	out.Rerouted = true
	return out, nil
}
