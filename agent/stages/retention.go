package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

const retentionSnippetCount = 3

// Retention drives the offer escalation ladder. The ladder is a hard guard
// here, not a request to the model: the stage decides which single offer (if
// any) may be presented this turn, hands exactly that to the model, and
// post-validates the outcome against the recorded ladder progress.
type Retention struct {
	model     contractx.RetentionModel
	profiles  contractx.ProfileStore
	rules     contractx.OfferRules
	retriever contractx.Retriever
}

func NewRetention(
	model contractx.RetentionModel,
	profiles contractx.ProfileStore,
	rules contractx.OfferRules,
	retriever contractx.Retriever,
) *Retention {
	return &Retention{
		model:     model,
		profiles:  profiles,
		rules:     rules,
		retriever: retriever,
	}
}

func (s *Retention) Name() contractx.StageName {
	return contractx.StageRetention
}

func (s *Retention) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	update := contractx.StageUpdate{}

	profile := st.CustomerProfile
	if profile == nil {
		profile = s.fetchProfile(ctx, st.CustomerEmail)
		update.CustomerProfile = profile
	}

	ruleOffers := s.fetchRuleOffers(ctx, profile, st.CancellationReason)

	lastText := st.LastCustomerText()
	hardware := mentionsHardware(lastText) || st.OfferPresented(statex.OfferReplaceDevice)
	ladder := applicableLadder(ruleOffers, hardware)

	snippets := s.fetchSnippets(ctx, st.CancellationReason, lastText)

	mode, offer := nextMove(st, ladder)

	resp, err := s.model.Negotiate(ctx, contractx.RetentionRequest{
		Transcript: st.Transcript,
		Context:    negotiationContext(profile, mode, offer, st.OffersPresented, snippets),
	})
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	outcome, action, err := enforceLadder(resp, mode, offer, st)
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	update.Message = resp.Message
	update.Outcome = outcome
	if outcome != statex.OutcomeInProgress {
		update.RetentionAction = action
	}
	if mode == modeDiscovery {
		update.DiscoveryAsked = true
	}
	if mode == modeOffer && offer != nil {
		update.OfferPresented = offer.ID
	}
	return update, nil
}

// fetchProfile looks the customer snapshot up once per session. Store
// failures degrade to an empty profile so the turn keeps going.
func (s *Retention) fetchProfile(ctx context.Context, email string) statex.Profile {
	if email == "" {
		return statex.Profile{}
	}
	profile, err := s.profiles.Lookup(ctx, email)
	if err != nil {
		if errors.Is(err, contractx.ErrProfileNotFound) {
			log.Debug().Str("email", email).Msg("no customer profile match, proceeding with general offers")
		} else {
			log.Warn().Err(err).Msg("profile lookup degraded to empty profile")
		}
		return statex.Profile{}
	}
	if profile == nil {
		profile = statex.Profile{}
	}
	return profile
}

func (s *Retention) fetchRuleOffers(ctx context.Context, profile statex.Profile, reason statex.Reason) []contractx.Offer {
	if !statex.ValidReason(reason) {
		return nil
	}
	tier := profile.Get("tier")
	if tier == "" {
		tier = "regular"
	}
	offers, err := s.rules.Lookup(ctx, tier, reason)
	if err != nil {
		log.Warn().Err(err).Str("tier", tier).Str("reason", string(reason)).
			Msg("offer rules lookup degraded to standard ladder")
		return nil
	}
	return offers
}

func (s *Retention) fetchSnippets(ctx context.Context, reason statex.Reason, lastText string) []contractx.Snippet {
	query := strings.TrimSpace(string(reason) + " " + lastText)
	if query == "" {
		return nil
	}
	snippets, err := s.retriever.Retrieve(ctx, query, retentionSnippetCount)
	if err != nil {
		log.Warn().Err(err).Msg("policy retrieval degraded to empty context")
		return nil
	}
	return snippets
}

// enforceLadder post-validates the model outcome against recorded progress:
// CANCEL before exhaustion is coerced back to IN_PROGRESS, and RETAINED must
// name an action matching an offer that was actually on the table.
func enforceLadder(
	resp contractx.RetentionResponse,
	mode negotiationMode,
	offer *contractx.Offer,
	st *statex.ConversationState,
) (statex.Outcome, string, error) {
	switch resp.Outcome {
	case statex.OutcomeInProgress:
		return statex.OutcomeInProgress, "", nil

	case statex.OutcomeCancel:
		if mode != modeClosing {
			log.Warn().
				Str("mode", string(mode)).
				Int("offers_presented", len(st.OffersPresented)).
				Msg("model proposed CANCEL before ladder exhaustion, keeping negotiation open")
			return statex.OutcomeInProgress, "", nil
		}
		return statex.OutcomeCancel, "cancelled", nil

	case statex.OutcomeRetained:
		acceptedOffer := offerForAction(resp.Action)
		if acceptedOffer == "" {
			return "", "", fmt.Errorf("%w: RETAINED requires a recognized action, got %q", contractx.ErrSchemaViolation, resp.Action)
		}
		onTable := st.OfferPresented(acceptedOffer) || (mode == modeOffer && offer != nil && offer.ID == acceptedOffer)
		if !onTable {
			return "", "", fmt.Errorf("%w: action %q accepts an offer that was never presented", contractx.ErrSchemaViolation, resp.Action)
		}
		return statex.OutcomeRetained, resp.Action, nil
	}
	return "", "", fmt.Errorf("%w: invalid outcome %q", contractx.ErrSchemaViolation, resp.Outcome)
}

// negotiationContext assembles the context block the model sees: customer
// profile, this turn's mode and offer, ladder progress, and policy snippets.
func negotiationContext(
	profile statex.Profile,
	mode negotiationMode,
	offer *contractx.Offer,
	presented []statex.OfferID,
	snippets []contractx.Snippet,
) string {
	var b strings.Builder

	b.WriteString("## Customer Profile\n")
	if len(profile) == 0 {
		b.WriteString("Customer data not found - proceed with general offers\n")
	} else {
		for _, key := range []string{"name", "email", "tier", "plan_type"} {
			if v := profile.Get(key); v != "" {
				fmt.Fprintf(&b, "%s: %s\n", key, v)
			}
		}
	}

	fmt.Fprintf(&b, "\n## Mode\n%s\n", mode)

	b.WriteString("\n## Offer You May Present This Turn\n")
	if offer != nil {
		fmt.Fprintf(&b, "%s: %s\n", offer.ID, offer.Description)
		if offer.DiscountPercent > 0 {
			fmt.Fprintf(&b, "discount_percent: %d\n", offer.DiscountPercent)
		}
		if offer.PauseMonths > 0 {
			fmt.Fprintf(&b, "pause_months: %d\n", offer.PauseMonths)
		}
	} else {
		b.WriteString("none\n")
	}

	b.WriteString("\n## Offers Already Presented\n")
	if len(presented) == 0 {
		b.WriteString("none\n")
	} else {
		for _, id := range presented {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}

	b.WriteString("\n## Relevant Policy Context\n")
	if len(snippets) == 0 {
		b.WriteString("No relevant policy information found.\n")
	} else {
		for i, snippet := range snippets {
			fmt.Fprintf(&b, "[%d] From %s:\n%s\n\n", i+1, snippet.SourceID, snippet.Text)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
