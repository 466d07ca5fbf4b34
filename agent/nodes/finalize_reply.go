package orchestratornode

import (
	"context"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/toolcall"
)

const ReplyUnclear = "Üzgünüm, sizi tam anlayamadım. Talebinizi tekrar eder misiniz?"

// FinalizePlain answers with the model's own text and logs it with the turn's
// processing time.
func FinalizePlain(ctx context.Context, in *GraphState, sink contractx.LogSink, nowFn func() time.Time) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}

	reply := visibleText(in.Raw, ReplyUnclear)
	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID: in.Session.SessionID,
		Role:      contractx.RoleAssistant,
		Content:   reply,
		Duration:  nowFn().Sub(in.Started),
		Timestamp: in.Now,
	})
	return finalizeReply(in, reply), nil
}

// finalizeReply appends the user-facing answer to the live history and closes
// the turn.
func finalizeReply(in *GraphState, reply string) GraphOutput {
	in.Session.Append(contractx.RoleAssistant, reply, in.Now)
	in.Stage = StageDone
	return GraphOutput{Reply: reply, Stage: StageDone}
}

// visibleText strips protocol markers from raw and falls back when nothing
// readable is left.
func visibleText(raw, fallback string) string {
	if text := toolcall.Strip(raw); text != "" {
		return text
	}
	return fallback
}
