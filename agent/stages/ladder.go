package stages

import (
	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// Authorization caps. Offers beyond these are never self-authorized: they are
// suppressed from the applicable ladder and noted for escalation.
const (
	maxSelfAuthorizedDiscountPct = 25
	maxSelfAuthorizedPauseMonths = 6
)

type negotiationMode string

const (
	modeDiscovery negotiationMode = "discovery"
	modeOffer     negotiationMode = "offer"
	modeClosing   negotiationMode = "closing"
)

var defaultPauseOffer = contractx.Offer{
	ID:          statex.OfferPause,
	Description: "Pause the subscription, keeping the account and benefits on hold",
	PauseMonths: 6,
}

var defaultDowngradeOffer = contractx.Offer{
	ID:          statex.OfferDowngrade,
	Description: "Downgrade to the Basic plan at $6.99/month instead of cancelling",
}

var replacementOffer = contractx.Offer{
	ID:          statex.OfferReplaceDevice,
	Description: "Free replacement device shipped out the next business day",
}

// applicableLadder produces the ordered offers for this customer: the fixed
// pause -> downgrade sequence, a rules-provided discount when one exists, and
// the device-replacement override injected ahead of everything when a
// hardware complaint surfaced during an active cancellation.
func applicableLadder(ruleOffers []contractx.Offer, hardwareComplaint bool) []contractx.Offer {
	byID := make(map[statex.OfferID]contractx.Offer, len(ruleOffers))
	for _, offer := range ruleOffers {
		if !withinAuthorization(offer) {
			log.Warn().
				Str("offer", string(offer.ID)).
				Int("discount_percent", offer.DiscountPercent).
				Int("pause_months", offer.PauseMonths).
				Msg("offer exceeds self-authorization limits, escalation required")
			continue
		}
		if _, dup := byID[offer.ID]; !dup {
			byID[offer.ID] = offer
		}
	}

	ladder := make([]contractx.Offer, 0, 4)
	if hardwareComplaint {
		ladder = append(ladder, replacementOffer)
	}
	for _, id := range statex.Ladder() {
		if offer, ok := byID[id]; ok {
			ladder = append(ladder, offer)
			continue
		}
		switch id {
		case statex.OfferPause:
			ladder = append(ladder, defaultPauseOffer)
		case statex.OfferDowngrade:
			ladder = append(ladder, defaultDowngradeOffer)
		case statex.OfferDiscount:
			// No discount unless the rules grant one for this tier and reason.
		}
	}
	return ladder
}

func withinAuthorization(offer contractx.Offer) bool {
	if offer.DiscountPercent > maxSelfAuthorizedDiscountPct {
		return false
	}
	if offer.PauseMonths > maxSelfAuthorizedPauseMonths {
		return false
	}
	return true
}

// nextMove decides what the negotiator does this turn: ask a discovery
// question first, then walk the ladder one offer per turn, then close.
func nextMove(st *statex.ConversationState, ladder []contractx.Offer) (negotiationMode, *contractx.Offer) {
	if !st.DiscoveryAsked {
		return modeDiscovery, nil
	}
	for i := range ladder {
		if !st.OfferPresented(ladder[i].ID) {
			return modeOffer, &ladder[i]
		}
	}
	return modeClosing, nil
}

// actionForOffer maps an accepted offer onto the retention action vocabulary.
func actionForOffer(id statex.OfferID) string {
	switch id {
	case statex.OfferPause:
		return "paused_6_months"
	case statex.OfferDowngrade:
		return "downgraded_basic"
	case statex.OfferDiscount:
		return "discount_applied"
	case statex.OfferReplaceDevice:
		return "replacement_arranged"
	}
	return ""
}

// offerForAction is the inverse mapping; unknown actions return "".
func offerForAction(action string) statex.OfferID {
	switch action {
	case "paused_6_months":
		return statex.OfferPause
	case "downgraded_basic":
		return statex.OfferDowngrade
	case "discount_applied":
		return statex.OfferDiscount
	case "replacement_arranged":
		return statex.OfferReplaceDevice
	}
	return ""
}
