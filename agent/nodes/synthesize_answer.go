package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	promptx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/prompt"
)

// SynthesizeAnswer turns a tool result into the caller-facing sentence with a
// second, history-free completion.
func SynthesizeAnswer(
	ctx context.Context,
	in *GraphState,
	prompts PromptSource,
	completion contractx.CompletionClient,
	sink contractx.LogSink,
	maxTokens int,
	nowFn func() time.Time,
) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}
	if in.Stage != StageAwaitingToolResult {
		return GraphOutput{}, fmt.Errorf("%w: synthesis requested in stage %q", contractx.ErrValidation, in.Stage)
	}

	sess := in.Session
	messages, err := prompts.Messages(ctx, sess.ActiveSpecialist, "", []*schema.Message{
		schema.UserMessage(promptx.ToolResultRequest(in.ToolName, in.ToolResult)),
	})
	if err != nil {
		return GraphOutput{}, err
	}

	raw := completion.Complete(ctx, messages, maxTokens)

	reply := visibleText(raw, in.ToolResult)
	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID:   sess.SessionID,
		Role:        contractx.RoleAssistant,
		Content:     reply,
		MessageType: contractx.MessageTypeToolCall,
		ToolName:    in.ToolName,
		ToolResult:  in.ToolResult,
		Duration:    nowFn().Sub(in.Started),
		Timestamp:   in.Now,
	})
	return finalizeReply(in, reply), nil
}
