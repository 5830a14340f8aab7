package contract

import (
	"context"

	statex "github.com/techflow/careflow/agent/state"
)

// Stage is one unit of conversational work. A stage reads the shared state,
// calls its collaborators, and returns a partial update for the merge engine.
// Stages never write ConversationState directly.
type Stage interface {
	Name() StageName
	Execute(ctx context.Context, st *statex.ConversationState) (StageUpdate, error)
}

// Registry exposes the role-specific structured-output models.
type Registry interface {
	Triage() TriageModel
	Retention() RetentionModel
	Processor() ProcessorModel
	TechSupport() SupportModel
	Billing() SupportModel
}

type TriageModel interface {
	Classify(ctx context.Context, req TriageRequest) (TriageResponse, error)
}

type RetentionModel interface {
	Negotiate(ctx context.Context, req RetentionRequest) (RetentionResponse, error)
}

type ProcessorModel interface {
	Confirm(ctx context.Context, req ProcessorRequest) (ProcessorResponse, error)
}

type SupportModel interface {
	Assist(ctx context.Context, req SupportRequest) (SupportResponse, error)
}

// Retriever serves ranked policy snippets. An empty result is valid.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Snippet, error)
}

// ProfileStore looks a customer snapshot up by email.
// Returns ErrProfileNotFound when no customer matches.
type ProfileStore interface {
	Lookup(ctx context.Context, email string) (statex.Profile, error)
}

// OfferRules returns the ordered offer descriptors for a tier and reason.
// Unknown tiers fall back to the regular tier; an unknown reason is
// ErrUnknownReason.
type OfferRules interface {
	Lookup(ctx context.Context, tier string, reason statex.Reason) ([]Offer, error)
}

// ActionLog durably records terminal actions. Appends must be atomic per
// write; cross-session ordering is not required.
type ActionLog interface {
	Append(ctx context.Context, rec ActionRecord) error
}
