// Package stages implements the five stage handlers of the support workflow:
// intent triage, retention negotiation, fulfillment processing, tech support,
// and billing. Each handler consumes the shared conversation state plus its
// external collaborators and returns a partial update for the merge engine.
package stages

import (
	"errors"
	"time"

	contractx "github.com/techflow/careflow/agent/contract"
)

// Deps carries the external collaborators the stage handlers consume.
type Deps struct {
	Models    contractx.Registry
	Retriever contractx.Retriever
	Profiles  contractx.ProfileStore
	Offers    contractx.OfferRules
	Actions   contractx.ActionLog

	Now func() time.Time
}

// NewSet builds the fixed stage registry the engine selects from.
func NewSet(deps Deps) (map[contractx.StageName]contractx.Stage, error) {
	if deps.Models == nil {
		return nil, errors.New("model registry is required")
	}
	if deps.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if deps.Offers == nil {
		return nil, errors.New("offer rules are required")
	}
	if deps.Actions == nil {
		return nil, errors.New("action log is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	set := map[contractx.StageName]contractx.Stage{
		contractx.StageTriage:      NewTriage(deps.Models.Triage()),
		contractx.StageRetention:   NewRetention(deps.Models.Retention(), deps.Profiles, deps.Offers, deps.Retriever),
		contractx.StageProcessor:   NewProcessor(deps.Models.Processor(), deps.Retriever, deps.Actions, now),
		contractx.StageTechSupport: NewTechSupport(deps.Models.TechSupport(), deps.Retriever),
		contractx.StageBilling:     NewBilling(deps.Models.Billing()),
	}
	return set, nil
}

func boolPtr(v bool) *bool {
	return &v
}
