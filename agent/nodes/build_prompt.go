package orchestratornode

import (
	"context"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
)

// PromptSource formats the completion messages for a layer: its system prompt
// followed by history. An empty specialist id selects the dispatcher.
type PromptSource interface {
	Messages(ctx context.Context, specialistID, customerID string, history []*schema.Message) ([]*schema.Message, error)
}

// Budgets are the max_tokens values per completion kind.
type Budgets struct {
	Dispatcher int
	Specialist int
	Synthesis  int
}

func BuildPrompt(ctx context.Context, in *GraphState, prompts PromptSource, budgets Budgets) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	sess := in.Session
	messages, err := prompts.Messages(ctx, sess.ActiveSpecialist, sess.CustomerID, historyMessages(sess.Recent(statex.HistoryWindow)))
	if err != nil {
		return nil, err
	}

	in.Messages = messages
	in.MaxTokens = budgets.Dispatcher
	if !sess.InDispatcher() {
		in.MaxTokens = budgets.Specialist
	}
	in.Stage = StageAwaitingCompletion
	return in, nil
}

func historyMessages(history []statex.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		out = append(out, &schema.Message{Role: schema.RoleType(m.Role), Content: m.Content})
	}
	return out
}
