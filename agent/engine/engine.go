package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidSession = errors.New("invalid session")
	ErrUnknownStage   = errors.New("unknown stage")
)

// Engine drives one customer message through triage and whichever handler
// stages the transition functions select, then suspends. Stage failures abort
// the turn without touching the caller's state.
type Engine struct {
	stages map[contractx.StageName]contractx.Stage

	graphRunner compose.Runnable[TurnInput, TurnOutput]

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(stages map[contractx.StageName]contractx.Stage, opts ...Option) (*Engine, error) {
	required := []contractx.StageName{
		contractx.StageTriage,
		contractx.StageRetention,
		contractx.StageProcessor,
		contractx.StageTechSupport,
		contractx.StageBilling,
	}
	for _, name := range required {
		if stages[name] == nil {
			return nil, fmt.Errorf("%w: stage %s is required", ErrUnknownStage, name)
		}
	}

	e := &Engine{
		stages: stages,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	graphRunner, err := e.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// RunTurn processes one customer message against the given session state. It
// returns the post-turn state; the input state is never mutated, so on error
// the caller keeps the pre-turn snapshot.
func (e *Engine) RunTurn(ctx context.Context, state TurnInput) (TurnOutput, error) {
	return e.graphRunner.Invoke(ctx, state)
}

func (e *Engine) runStage(ctx context.Context, ts *turnState, name contractx.StageName) (*turnState, error) {
	if ts == nil || ts.State == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	stage := e.stages[name]
	if stage == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}

	update, err := stage.Execute(ctx, ts.State)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}
	if err := applyUpdate(ts.State, update, e.now()); err != nil {
		return nil, fmt.Errorf("merge %s update: %w", name, err)
	}
	ts.Replies = append(ts.Replies, update.Message)

	log.Debug().
		Str("session_id", ts.State.SessionID).
		Str("stage", string(name)).
		Str("intent", string(ts.State.Intent)).
		Str("outcome", string(ts.State.Outcome)).
		Bool("session_complete", ts.State.SessionComplete).
		Msg("stage applied")
	return ts, nil
}
