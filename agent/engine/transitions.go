package engine

import (
	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// RouteAfterTriage picks the stage that handles the turn once triage has
// classified it. Retention requires a verified email on file; without one the
// turn suspends so the triage prompt for the address reaches the customer.
func RouteAfterTriage(st *statex.ConversationState) contractx.StageName {
	switch st.Intent {
	case statex.IntentRetention:
		if !statex.ValidEmail(st.CustomerEmail) {
			return contractx.StageSuspend
		}
		return contractx.StageRetention
	case statex.IntentTechSupport:
		return contractx.StageTechSupport
	case statex.IntentBilling:
		return contractx.StageBilling
	}
	return contractx.StageSuspend
}

// RouteAfterNegotiation decides whether a negotiation turn reached a terminal
// outcome. Both RETAINED and CANCEL flow to the processor; anything else
// suspends and waits for the customer's next message.
func RouteAfterNegotiation(st *statex.ConversationState) contractx.StageName {
	switch st.Outcome {
	case statex.OutcomeRetained, statex.OutcomeCancel:
		return contractx.StageProcessor
	}
	return contractx.StageSuspend
}
