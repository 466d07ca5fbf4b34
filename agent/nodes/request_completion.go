package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

func RequestCompletion(ctx context.Context, in *GraphState, completion contractx.CompletionClient) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	if in.Stage != StageAwaitingCompletion {
		return nil, fmt.Errorf("%w: completion requested in stage %q", contractx.ErrValidation, in.Stage)
	}

	in.Raw = completion.Complete(ctx, in.Messages, in.MaxTokens)
	log.Debug().
		Str("session_id", in.Session.SessionID).
		Str("layer", string(in.Session.Layer)).
		Int("max_tokens", in.MaxTokens).
		Msg("completion received")
	return in, nil
}
