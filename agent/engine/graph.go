package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// TurnInput carries one customer message into the turn graph. State is the
// session snapshot the caller loaded; the graph works on a clone of it.
type TurnInput struct {
	State *statex.ConversationState
	Text  string
}

// TurnOutput is the result of running one turn to suspension.
type TurnOutput struct {
	State    *statex.ConversationState
	Reply    string
	Complete bool
}

// turnState is the value threaded through the graph nodes. Replies accumulate
// so a chained turn (triage then retention, retention then processor) returns
// everything the customer should read.
type turnState struct {
	State   *statex.ConversationState
	Replies []string
}

func (e *Engine) compileTurnGraph(ctx context.Context) (compose.Runnable[TurnInput, TurnOutput], error) {
	graph := compose.NewGraph[TurnInput, TurnOutput]()

	if err := graph.AddLambdaNode("prepare_turn",
		compose.InvokableLambda(func(ctx context.Context, in TurnInput) (*turnState, error) {
			return e.prepareTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node prepare_turn: %w", err)
	}

	stageNodes := []contractx.StageName{
		contractx.StageTriage,
		contractx.StageRetention,
		contractx.StageTechSupport,
		contractx.StageBilling,
		contractx.StageProcessor,
	}
	for _, name := range stageNodes {
		name := name
		if err := graph.AddLambdaNode(string(name),
			compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
				return e.runStage(ctx, in, name)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_turn",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (TurnOutput, error) {
			return finalizeTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_turn: %w", err)
	}

	triageBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnState) (string, error) {
			if in == nil || in.State == nil {
				return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
			}
			return branchNode(RouteAfterTriage(in.State)), nil
		},
		map[string]bool{
			string(contractx.StageRetention):   true,
			string(contractx.StageTechSupport): true,
			string(contractx.StageBilling):     true,
			"finalize_turn":                    true,
		},
	)
	if err := graph.AddBranch(string(contractx.StageTriage), triageBranch); err != nil {
		return nil, fmt.Errorf("add triage branch: %w", err)
	}

	negotiationBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnState) (string, error) {
			if in == nil || in.State == nil {
				return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
			}
			return branchNode(RouteAfterNegotiation(in.State)), nil
		},
		map[string]bool{
			string(contractx.StageProcessor): true,
			"finalize_turn":                  true,
		},
	)
	if err := graph.AddBranch(string(contractx.StageRetention), negotiationBranch); err != nil {
		return nil, fmt.Errorf("add negotiation branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prepare_turn"},
		{"prepare_turn", string(contractx.StageTriage)},
		{string(contractx.StageTechSupport), "finalize_turn"},
		{string(contractx.StageBilling), "finalize_turn"},
		{string(contractx.StageProcessor), "finalize_turn"},
		{"finalize_turn", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("engine.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

// branchNode maps a transition result onto a graph node key. Suspension is
// not a stage, so it resolves to the finalize node.
func branchNode(name contractx.StageName) string {
	if name == contractx.StageSuspend {
		return "finalize_turn"
	}
	return string(name)
}

func (e *Engine) prepareTurn(in TurnInput) (*turnState, error) {
	if in.State == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidSession)
	}
	if strings.TrimSpace(in.State.SessionID) == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrInvalidSession)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if in.State.SessionComplete {
		return nil, fmt.Errorf("%w: session %s already complete", ErrInvalidSession, in.State.SessionID)
	}

	// The graph owns a clone so a failed stage leaves the caller's state
	// untouched.
	working := in.State.Clone()
	working.AppendTurn(statex.SpeakerCustomer, text)
	working.Touch(e.now())
	return &turnState{State: working}, nil
}

func finalizeTurn(in *turnState) (TurnOutput, error) {
	if in == nil || in.State == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	if err := in.State.Validate(); err != nil {
		return TurnOutput{}, err
	}
	return TurnOutput{
		State:    in.State,
		Reply:    strings.Join(in.Replies, "\n\n"),
		Complete: in.State.SessionComplete,
	}, nil
}
