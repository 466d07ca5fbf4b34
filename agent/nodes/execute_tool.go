package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

// ExecuteTool runs a domain tool call of the active specialist. The bound customer id is filled in when
// the tool expects one and the model left it out; a successful user lookup
// binds the id it was called with.
func ExecuteTool(ctx context.Context, in *GraphState, registry *toolx.Registry, tools contractx.ToolExecutor) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	sess := in.Session
	if !toolAllowed(registry, sess.ActiveSpecialist, in.ToolName) {
		return nil, fmt.Errorf("%w: tool %q is not available to %q", contractx.ErrValidation, in.ToolName, sess.ActiveSpecialist)
	}

	params := make(map[string]any, len(in.ToolParams)+1)
	for k, v := range in.ToolParams {
		params[k] = v
	}
	if def, ok := registry.Tool(in.ToolName); ok && def.Expects(toolx.ParamCustomerID) {
		if strings.TrimSpace(toolx.StringParam(params, toolx.ParamCustomerID)) == "" && sess.CustomerID != "" {
			log.Info().
				Str("session_id", sess.SessionID).
				Str("tool", in.ToolName).
				Str("customer_id", sess.CustomerID).
				Msg("customer id filled from session")
			params[toolx.ParamCustomerID] = sess.CustomerID
		}
	}
	in.ToolParams = params
	in.Stage = StageAwaitingToolResult

	in.ToolResult, in.ToolSuccess = tools.Execute(ctx, sess.SessionID, in.ToolName, params)

	if in.ToolName == toolx.GetUserInfo && in.ToolSuccess {
		sess.BindCustomer(toolx.StringParam(params, toolx.ParamCustomerID))
	}
	return in, nil
}
