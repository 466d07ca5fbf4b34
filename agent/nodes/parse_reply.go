package orchestratornode

import (
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/toolcall"
)

// Branch targets after parse_reply.
const (
	NodeFinalizePlain   = "finalize_plain"
	NodeRouteSpecialist = "route_specialist"
	NodeExecuteTool     = "execute_tool"
	NodeRejectTool      = "reject_tool"
)

func ParseReply(in *GraphState) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	in.Reply = toolcall.Parse(in.Raw)
	if in.Reply.Kind == toolcall.KindCall {
		in.ToolName = in.Reply.Call.Tool
		in.ToolParams = in.Reply.Call.Parameters
	}
	return in, nil
}

// NextAfterParse picks the branch for a parsed reply. Malformed calls are
// answered as plain text; calls outside the active specialist's tools never
// reach the executor.
func NextAfterParse(in *GraphState, registry *toolx.Registry) (string, error) {
	if err := requireState(in); err != nil {
		return "", err
	}
	if in.Reply.Kind != toolcall.KindCall {
		return NodeFinalizePlain, nil
	}
	if in.ToolName == registry.RoutingTool() {
		return NodeRouteSpecialist, nil
	}
	if !toolAllowed(registry, in.Session.ActiveSpecialist, in.ToolName) {
		return NodeRejectTool, nil
	}
	return NodeExecuteTool, nil
}
