package session

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/techflow/careflow/agent/contract"
	enginex "github.com/techflow/careflow/agent/engine"
	statex "github.com/techflow/careflow/agent/state"
)

type scriptedStage struct {
	name    contractx.StageName
	updates []contractx.StageUpdate
	err     error
	calls   int
}

func (f *scriptedStage) Name() contractx.StageName {
	return f.name
}

func (f *scriptedStage) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	f.calls++
	if f.err != nil {
		return contractx.StageUpdate{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.updates) {
		idx = len(f.updates) - 1
	}
	return f.updates[idx], nil
}

func echoStage(name contractx.StageName, updates ...contractx.StageUpdate) *scriptedStage {
	return &scriptedStage{name: name, updates: updates}
}

func newTestManager(t *testing.T, store statex.Store, triage *scriptedStage, extra map[contractx.StageName]contractx.Stage) *Manager {
	t.Helper()

	stages := map[contractx.StageName]contractx.Stage{
		contractx.StageTriage:      triage,
		contractx.StageRetention:   echoStage(contractx.StageRetention, contractx.StageUpdate{Message: "retention"}),
		contractx.StageProcessor:   echoStage(contractx.StageProcessor, contractx.StageUpdate{Message: "processor"}),
		contractx.StageTechSupport: echoStage(contractx.StageTechSupport, contractx.StageUpdate{Message: "tech"}),
		contractx.StageBilling:     echoStage(contractx.StageBilling, contractx.StageUpdate{Message: "billing"}),
	}
	for name, stage := range extra {
		stages[name] = stage
	}

	engine, err := enginex.New(stages)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	manager, err := NewManager(store, engine)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return manager
}

func TestSubmitCreatesAndPersistsSession(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	triage := echoStage(contractx.StageTriage, contractx.StageUpdate{
		Message: "How can I help?",
		Intent:  statex.IntentOther,
	})
	manager := newTestManager(t, store, triage, nil)

	result, err := manager.Submit(context.Background(), "session-1", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Complete {
		t.Fatal("open question must not complete the session")
	}

	saved, err := store.Load(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Load() after submit error = %v", err)
	}
	if len(saved.Transcript) != 2 {
		t.Fatalf("persisted transcript length = %d, want 2", len(saved.Transcript))
	}
}

func TestSubmitAccumulatesAcrossTurns(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	triage := echoStage(contractx.StageTriage,
		contractx.StageUpdate{Message: "turn one", Intent: statex.IntentOther},
		contractx.StageUpdate{Message: "turn two", Intent: statex.IntentOther},
	)
	manager := newTestManager(t, store, triage, nil)

	if _, err := manager.Submit(context.Background(), "s1", "first"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if _, err := manager.Submit(context.Background(), "s1", "second"); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	saved, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved.Transcript) != 4 {
		t.Fatalf("transcript length = %d, want 4", len(saved.Transcript))
	}
	if saved.Transcript[2].Text != "second" {
		t.Fatalf("third entry = %q, want the second customer message", saved.Transcript[2].Text)
	}
}

func TestSubmitDeletesCompletedSession(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	complete := true
	triage := echoStage(contractx.StageTriage, contractx.StageUpdate{
		Message: "Checking that charge.",
		Intent:  statex.IntentBilling,
	})
	billing := echoStage(contractx.StageBilling, contractx.StageUpdate{
		Message:         "All sorted.",
		SessionComplete: &complete,
	})
	manager := newTestManager(t, store, triage, map[contractx.StageName]contractx.Stage{
		contractx.StageBilling: billing,
	})

	result, err := manager.Submit(context.Background(), "s1", "billing question")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !result.Complete {
		t.Fatal("expected completed session")
	}

	if _, err := store.Load(context.Background(), "s1"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("Load() after completion error = %v, want ErrStateNotFound", err)
	}

	// The same id starts from scratch afterwards.
	again, err := manager.Submit(context.Background(), "s1", "new conversation")
	if err != nil {
		t.Fatalf("Submit() after reset error = %v", err)
	}
	if again.Complete {
		t.Fatal("fresh session completed unexpectedly")
	}
	saved, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved.Transcript) != 2 {
		t.Fatalf("fresh transcript length = %d, want 2", len(saved.Transcript))
	}
}

func TestSubmitFailedTurnLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	seed := statex.NewConversationState("s1", time.Now())
	seed.AppendTurn(statex.SpeakerCustomer, "earlier")
	seed.AppendTurn(statex.SpeakerAgent, "earlier reply")
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}

	triage := &scriptedStage{name: contractx.StageTriage, err: errors.New("model unavailable")}
	manager := newTestManager(t, store, triage, nil)

	if _, err := manager.Submit(context.Background(), "s1", "hello"); err == nil {
		t.Fatal("Submit() expected error")
	}

	saved, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved.Transcript) != 2 {
		t.Fatalf("stored transcript length = %d, want 2 (unchanged)", len(saved.Transcript))
	}
}

func TestSubmitEmptySessionID(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, statex.NewMemoryStore(),
		echoStage(contractx.StageTriage, contractx.StageUpdate{Message: "hi", Intent: statex.IntentOther}), nil)

	_, err := manager.Submit(context.Background(), "   ", "hello")
	if !errors.Is(err, enginex.ErrInvalidSession) {
		t.Fatalf("Submit() error = %v, want ErrInvalidSession", err)
	}
}
