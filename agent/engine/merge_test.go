package engine

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

func testClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestApplyUpdateRequiresMessage(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	err := applyUpdate(st, contractx.StageUpdate{}, testClock())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("applyUpdate() error = %v, want ErrValidation", err)
	}
}

func TestApplyUpdateAppendsAgentTurn(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	st.AppendTurn(statex.SpeakerCustomer, "hi")

	err := applyUpdate(st, contractx.StageUpdate{Message: "hello"}, testClock())
	if err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if len(st.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(st.Transcript))
	}
	last := st.Transcript[1]
	if last.Speaker != statex.SpeakerAgent || last.Text != "hello" {
		t.Fatalf("unexpected last entry: %+v", last)
	}
	if !st.UpdatedAt.Equal(testClock()) {
		t.Fatalf("UpdatedAt = %v, want %v", st.UpdatedAt, testClock())
	}
}

func TestApplyUpdateZeroFieldsLeaveStateAlone(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	st.Intent = statex.IntentRetention
	st.CancellationReason = statex.ReasonServiceValue
	if err := st.SetEmail("alice@example.com"); err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}

	err := applyUpdate(st, contractx.StageUpdate{Message: "noted"}, testClock())
	if err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if st.Intent != statex.IntentRetention || st.CancellationReason != statex.ReasonServiceValue {
		t.Fatalf("classification overwritten by zero-valued update: %+v", st)
	}
	if st.CustomerEmail != "alice@example.com" {
		t.Fatalf("email overwritten: %q", st.CustomerEmail)
	}
}

func TestApplyUpdateRejectsInvalidEnums(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())

	err := applyUpdate(st, contractx.StageUpdate{Message: "m", Intent: statex.Intent("SALES")}, testClock())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("invalid intent error = %v, want ErrValidation", err)
	}

	err = applyUpdate(st, contractx.StageUpdate{Message: "m", Outcome: statex.Outcome("MAYBE")}, testClock())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("invalid outcome error = %v, want ErrValidation", err)
	}
}

func TestApplyUpdateEmailMonotonic(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	if err := st.SetEmail("alice@example.com"); err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}

	// A conflicting email is dropped, not an error and not an overwrite.
	err := applyUpdate(st, contractx.StageUpdate{Message: "m", CustomerEmail: "bob@example.com"}, testClock())
	if err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if st.CustomerEmail != "alice@example.com" {
		t.Fatalf("email = %q, want alice@example.com", st.CustomerEmail)
	}

	// Same for a malformed one.
	err = applyUpdate(st, contractx.StageUpdate{Message: "m", CustomerEmail: "not-an-email"}, testClock())
	if err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if st.CustomerEmail != "alice@example.com" {
		t.Fatalf("email = %q, want alice@example.com", st.CustomerEmail)
	}
}

func TestApplyUpdateSessionCompleteOneWay(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	if err := applyUpdate(st, contractx.StageUpdate{Message: "done", SessionComplete: boolPtr(true)}, testClock()); err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if !st.SessionComplete {
		t.Fatal("SessionComplete not set")
	}

	if err := applyUpdate(st, contractx.StageUpdate{Message: "more", SessionComplete: boolPtr(false)}, testClock()); err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}
	if !st.SessionComplete {
		t.Fatal("SessionComplete went backwards")
	}
}

func TestApplyUpdateOfferGuards(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	if err := applyUpdate(st, contractx.StageUpdate{Message: "m", OfferPresented: statex.OfferPause}, testClock()); err != nil {
		t.Fatalf("applyUpdate() error = %v", err)
	}

	err := applyUpdate(st, contractx.StageUpdate{Message: "m", OfferPresented: statex.OfferPause}, testClock())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("repeated offer error = %v, want ErrValidation", err)
	}
	if len(st.OffersPresented) != 1 {
		t.Fatalf("OffersPresented = %#v, want single entry", st.OffersPresented)
	}
}

func TestApplyUpdateCountsSupportAttempts(t *testing.T) {
	t.Parallel()

	st := statex.NewConversationState("s1", time.Now())
	for i := 0; i < 3; i++ {
		if err := applyUpdate(st, contractx.StageUpdate{Message: "try this", SupportAttempt: true}, testClock()); err != nil {
			t.Fatalf("applyUpdate() error = %v", err)
		}
	}
	if st.SupportAttempts != 3 {
		t.Fatalf("SupportAttempts = %d, want 3", st.SupportAttempts)
	}
}
