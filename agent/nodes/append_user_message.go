package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

func AppendUserMessage(ctx context.Context, in *GraphState, sink contractx.LogSink) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	in.Session.Append(contractx.RoleUser, in.Text, in.Now)
	recordMessage(ctx, sink, contractx.MessageRecord{
		SessionID: in.Session.SessionID,
		Role:      contractx.RoleUser,
		Content:   in.Text,
		Timestamp: in.Now,
	})
	return in, nil
}
