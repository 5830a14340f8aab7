package contract

import (
	"time"

	statex "github.com/techflow/careflow/agent/state"
)

type StageName string

const (
	StageTriage      StageName = "intent_triage"
	StageRetention   StageName = "retention"
	StageProcessor   StageName = "processor"
	StageTechSupport StageName = "tech_support"
	StageBilling     StageName = "billing"

	// StageSuspend is not a stage: it is the transition-function result that
	// hands control back to the caller until the next customer message.
	StageSuspend StageName = "suspend"
)

// StageUpdate is the partial output one stage hands to the merge engine.
// Zero-valued fields mean "unchanged"; SessionComplete uses a pointer so a
// terminal-or-looping stage can set an explicit false.
type StageUpdate struct {
	Message string `json:"message"`

	Intent             statex.Intent  `json:"intent,omitempty"`
	CancellationReason statex.Reason  `json:"cancellation_reason,omitempty"`
	CustomerEmail      string         `json:"customer_email,omitempty"`
	CustomerProfile    statex.Profile `json:"customer_profile,omitempty"`

	Outcome         statex.Outcome `json:"outcome,omitempty"`
	RetentionAction string         `json:"retention_action,omitempty"`
	OfferPresented  statex.OfferID `json:"offer_presented,omitempty"`
	DiscoveryAsked  bool           `json:"discovery_asked,omitempty"`

	SupportAttempt  bool  `json:"support_attempt,omitempty"`
	SessionComplete *bool `json:"session_complete,omitempty"`
}

// Offer is one rung of the retention ladder as described by the offer rules.
type Offer struct {
	ID              statex.OfferID `json:"id"`
	Description     string         `json:"description"`
	DiscountPercent int            `json:"discount_percent,omitempty"`
	PauseMonths     int            `json:"pause_months,omitempty"`
}

// Snippet is one retrieved policy fragment.
type Snippet struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// ActionRecord is the durable trace of a terminal action.
type ActionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	CustomerID string    `json:"customer_id"`
	Action     string    `json:"action"`
}

/* --------------------------- Model I/O contracts -------------------------- */

type TriageRequest struct {
	Transcript []statex.Turn `json:"transcript"`
	// KnownEmail tells the model not to re-request an address it already has.
	KnownEmail string `json:"known_email,omitempty"`
}

type TriageResponse struct {
	Message string        `json:"message"`
	Intent  statex.Intent `json:"intent"`
	Reason  statex.Reason `json:"reason"`
	Email   string        `json:"email"`
}

type RetentionRequest struct {
	Transcript []statex.Turn `json:"transcript"`
	Context    string        `json:"context"`
}

type RetentionResponse struct {
	Message string         `json:"message"`
	Outcome statex.Outcome `json:"outcome"`
	Action  string         `json:"action"`
}

type ProcessorRequest struct {
	Transcript []statex.Turn `json:"transcript"`
	Context    string        `json:"context"`
}

type ProcessorResponse struct {
	Message string `json:"message"`
}

type SupportRequest struct {
	Transcript []statex.Turn `json:"transcript"`
	Context    string        `json:"context"`
}

type SupportResponse struct {
	Message  string `json:"message"`
	Resolved bool   `json:"resolved"`
}
