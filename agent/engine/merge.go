package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// applyUpdate merges one stage's partial output into the running state.
// Merge rules: transcript appends, every other field overwrites only when the
// update carries it. The state invariants (append-only transcript, monotonic
// email, one-way completion, ladder-ordered offers) are enforced here so no
// stage can violate them.
func applyUpdate(st *statex.ConversationState, update contractx.StageUpdate, now time.Time) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", contractx.ErrValidation)
	}
	if update.Message == "" {
		return fmt.Errorf("%w: stage produced no message", contractx.ErrValidation)
	}

	if update.Intent != statex.IntentUnset {
		if !statex.ValidIntent(update.Intent) {
			return fmt.Errorf("%w: intent=%q", contractx.ErrValidation, update.Intent)
		}
		st.Intent = update.Intent
	}

	if update.CancellationReason != statex.ReasonUnset {
		if !statex.ValidReason(update.CancellationReason) {
			return fmt.Errorf("%w: cancellation_reason=%q", contractx.ErrValidation, update.CancellationReason)
		}
		st.CancellationReason = update.CancellationReason
	}

	if err := st.SetEmail(update.CustomerEmail); err != nil {
		// Fail closed: a malformed or conflicting email is treated as absent.
		if errors.Is(err, statex.ErrEmailMalformed) || errors.Is(err, statex.ErrEmailConflict) {
			log.Warn().Err(err).Str("session_id", st.SessionID).Msg("dropping email update")
		} else {
			return err
		}
	}

	if update.CustomerProfile != nil {
		st.CustomerProfile = update.CustomerProfile
	}

	if update.Outcome != "" {
		if !statex.ValidOutcome(update.Outcome) {
			return fmt.Errorf("%w: outcome=%q", contractx.ErrValidation, update.Outcome)
		}
		st.Outcome = update.Outcome
	}

	if update.RetentionAction != "" {
		st.RetentionAction = update.RetentionAction
	}

	if update.OfferPresented != "" {
		if err := st.RecordOffer(update.OfferPresented); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
		}
	}

	if update.DiscoveryAsked {
		st.DiscoveryAsked = true
	}

	if update.SupportAttempt {
		st.SupportAttempts++
	}

	if update.SessionComplete != nil {
		if *update.SessionComplete {
			st.MarkComplete()
		} else if st.SessionComplete {
			// Completion is one-way; a stage cannot reopen a finished session.
			log.Warn().Str("session_id", st.SessionID).Msg("ignoring attempt to un-complete session")
		}
	}

	st.AppendTurn(statex.SpeakerAgent, update.Message)
	st.Touch(now)
	return nil
}
