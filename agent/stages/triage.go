package stages

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// Triage is the entry stage: it classifies the customer's intent, maps the
// cancellation reason, and extracts the email address. The classification
// rules of the role instructions are re-checked here so they hold regardless
// of how well the model follows them.
type Triage struct {
	model contractx.TriageModel
}

func NewTriage(model contractx.TriageModel) *Triage {
	return &Triage{model: model}
}

func (s *Triage) Name() contractx.StageName {
	return contractx.StageTriage
}

func (s *Triage) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	resp, err := s.model.Classify(ctx, contractx.TriageRequest{
		Transcript: st.Transcript,
		KnownEmail: st.CustomerEmail,
	})
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	said := customerText(st)
	intent, reason := enforcePrecedence(resp.Intent, resp.Reason, said)

	email := resp.Email
	if email != "" && !statex.ValidEmail(email) {
		// Fail closed: a malformed extraction is treated as absent.
		log.Warn().Str("stage", string(s.Name())).Str("email", email).Msg("dropping malformed email from model")
		email = ""
	}
	if email == "" {
		email = statex.FindEmail(said)
	}

	return contractx.StageUpdate{
		Message:            resp.Message,
		Intent:             intent,
		CancellationReason: reason,
		CustomerEmail:      email,
	}, nil
}

// enforcePrecedence applies the classification precedence rules: cancellation
// intent plus a hardware complaint wins over a plain tech-support routing, and
// a retention classification without a reason gets one inferred from the
// customer's own words.
func enforcePrecedence(intent statex.Intent, reason statex.Reason, said string) (statex.Intent, statex.Reason) {
	if mentionsHardware(said) && mentionsCancellation(said) {
		if intent != statex.IntentRetention || reason != statex.ReasonProductIssues {
			log.Debug().
				Str("model_intent", string(intent)).
				Msg("precedence override: cancellation plus hardware complaint is retention")
		}
		return statex.IntentRetention, statex.ReasonProductIssues
	}

	if intent == statex.IntentRetention && reason == statex.ReasonUnset {
		reason = inferReason(said)
	}
	if intent != statex.IntentRetention {
		// A reason only travels with a retention classification.
		reason = statex.ReasonUnset
	}
	return intent, reason
}
