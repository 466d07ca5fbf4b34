package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/nodes"
)

const (
	nodeValidateRequest    = "validate_request"
	nodeCheckMenuCommand   = "check_menu_command"
	nodeReturnToDispatcher = "return_to_dispatcher"
	nodeAppendUserMessage  = "append_user_message"
	nodeBuildPrompt        = "build_prompt"
	nodeRequestCompletion  = "request_completion"
	nodeParseReply         = "parse_reply"
	nodeSynthesizeAnswer   = "synthesize_answer"
)

func (e *engine) compileProcessMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodeCheckMenuCommand,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CheckMenuCommand(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeCheckMenuCommand, err)
	}

	if err := graph.AddLambdaNode(nodeReturnToDispatcher,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.ReturnToDispatcher(ctx, in, e.deps.Sink)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeReturnToDispatcher, err)
	}

	if err := graph.AddLambdaNode(nodeAppendUserMessage,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AppendUserMessage(ctx, in, e.deps.Sink)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeAppendUserMessage, err)
	}

	if err := graph.AddLambdaNode(nodeBuildPrompt,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildPrompt(ctx, in, e.deps.Prompts, e.cfg.budgets())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeBuildPrompt, err)
	}

	if err := graph.AddLambdaNode(nodeRequestCompletion,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RequestCompletion(ctx, in, e.deps.Completion)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRequestCompletion, err)
	}

	if err := graph.AddLambdaNode(nodeParseReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ParseReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeParseReply, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeFinalizePlain,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizePlain(ctx, in, e.deps.Sink, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeFinalizePlain, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeRouteSpecialist,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.RouteSpecialist(ctx, in, e.deps.Registry, e.deps.Sink)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeRouteSpecialist, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeExecuteTool,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecuteTool(ctx, in, e.deps.Registry, e.deps.Tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeExecuteTool, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeRejectTool,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.RejectTool(ctx, in, e.deps.Sink, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeRejectTool, err)
	}

	if err := graph.AddLambdaNode(nodeSynthesizeAnswer,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.SynthesizeAnswer(ctx, in, e.deps.Prompts, e.deps.Completion, e.deps.Sink, e.cfg.SynthesisMaxTokens, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSynthesizeAnswer, err)
	}

	menuBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", nodex.ErrInvalidSession
			}
			if in.MenuCommand {
				return nodeReturnToDispatcher, nil
			}
			return nodeAppendUserMessage, nil
		},
		map[string]bool{
			nodeReturnToDispatcher: true,
			nodeAppendUserMessage:  true,
		},
	)
	if err := graph.AddBranch(nodeCheckMenuCommand, menuBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeCheckMenuCommand, err)
	}

	replyBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.NextAfterParse(in, e.deps.Registry)
		},
		map[string]bool{
			nodex.NodeFinalizePlain:   true,
			nodex.NodeRouteSpecialist: true,
			nodex.NodeExecuteTool:     true,
			nodex.NodeRejectTool:      true,
		},
	)
	if err := graph.AddBranch(nodeParseReply, replyBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeParseReply, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeCheckMenuCommand},
		{nodeReturnToDispatcher, compose.END},
		{nodeAppendUserMessage, nodeBuildPrompt},
		{nodeBuildPrompt, nodeRequestCompletion},
		{nodeRequestCompletion, nodeParseReply},
		{nodex.NodeFinalizePlain, compose.END},
		{nodex.NodeRouteSpecialist, compose.END},
		{nodex.NodeExecuteTool, nodeSynthesizeAnswer},
		{nodex.NodeRejectTool, compose.END},
		{nodeSynthesizeAnswer, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.process_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
