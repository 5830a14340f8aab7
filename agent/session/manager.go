package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	enginex "github.com/techflow/careflow/agent/engine"
	statex "github.com/techflow/careflow/agent/state"
)

// Result is what one submitted message produced.
type Result struct {
	Reply    string
	Complete bool
}

// Manager owns the load, run, persist cycle around the turn engine. A session
// that completes is deleted from the store, so the next message under the
// same id starts a fresh conversation.
type Manager struct {
	store  statex.Store
	engine *enginex.Engine
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store statex.Store, engine *enginex.Engine, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if engine == nil {
		return nil, errors.New("turn engine is required")
	}
	m := &Manager{
		store:  store,
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Submit runs one customer message for the given session. State is persisted
// only when the whole turn succeeds; a stage failure leaves the stored
// snapshot exactly as it was.
func (m *Manager) Submit(ctx context.Context, sessionID string, text string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, fmt.Errorf("%w: empty session id", enginex.ErrInvalidSession)
	}

	state, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		state = statex.NewConversationState(sessionID, m.now())
	case err != nil:
		return Result{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	out, err := m.engine.RunTurn(ctx, enginex.TurnInput{State: state, Text: text})
	if err != nil {
		return Result{}, err
	}

	if out.Complete {
		// Reset semantics: drop the finished session so the id can be reused.
		if err := m.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, statex.ErrStateNotFound) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete completed session")
		}
	} else if err := m.store.Save(ctx, out.State); err != nil {
		return Result{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	return Result{Reply: out.Reply, Complete: out.Complete}, nil
}
