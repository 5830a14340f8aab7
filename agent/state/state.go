package state

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ConversationState is the persistent source-of-truth for one support session.
// It is the single record threaded through every stage of a turn:
// - Transcript is append-only and keeps chronological order.
// - CustomerEmail is monotonic: once set it never changes for the session.
// - OffersPresented records the retention ladder progress explicitly, so the
//   offer ordering is a state-machine guard instead of a prompt request.
// - SessionComplete is a one-way flag; the session manager resets on true.
type ConversationState struct {
	SessionID string `json:"session_id"`

	Transcript         []Turn    `json:"transcript,omitempty"`
	Intent             Intent    `json:"intent,omitempty"`
	CancellationReason Reason    `json:"cancellation_reason,omitempty"`
	CustomerEmail      string    `json:"customer_email,omitempty"`
	CustomerProfile    Profile   `json:"customer_profile,omitempty"`
	Outcome            Outcome   `json:"outcome"`
	RetentionAction    string    `json:"retention_action,omitempty"`
	OffersPresented    []OfferID `json:"offers_presented,omitempty"`
	DiscoveryAsked     bool      `json:"discovery_asked,omitempty"`
	SupportAttempts    int       `json:"support_attempts,omitempty"`
	SessionComplete    bool      `json:"session_complete,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
)

type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

type Intent string

const (
	IntentUnset       Intent = ""
	IntentRetention   Intent = "RETENTION"
	IntentTechSupport Intent = "TECH_SUPPORT"
	IntentBilling     Intent = "BILLING"
	IntentOther       Intent = "OTHER"
)

type Reason string

const (
	ReasonUnset             Reason = ""
	ReasonFinancialHardship Reason = "financial_hardship"
	ReasonProductIssues     Reason = "product_issues"
	ReasonServiceValue      Reason = "service_value"
)

type Outcome string

const (
	OutcomeInProgress Outcome = "IN_PROGRESS"
	OutcomeRetained   Outcome = "RETAINED"
	OutcomeCancel     Outcome = "CANCEL"
)

// OfferID identifies one rung of the retention offer ladder.
type OfferID string

const (
	OfferReplaceDevice OfferID = "replace_device"
	OfferPause         OfferID = "pause_subscription"
	OfferDowngrade     OfferID = "downgrade_basic"
	OfferDiscount      OfferID = "discount"
)

// Ladder returns the standard offer order. OfferReplaceDevice is not part of
// the standard ladder; it is substituted ahead of it when a hardware complaint
// surfaces during an active cancellation.
func Ladder() []OfferID {
	return []OfferID{OfferPause, OfferDowngrade, OfferDiscount}
}

// Profile is the customer snapshot fetched once per session.
type Profile map[string]string

func (p Profile) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

/* ------------------------------- Sentinels ------------------------------- */

var (
	ErrEmailMalformed  = errors.New("email is malformed")
	ErrEmailConflict   = errors.New("customer email already set")
	ErrOfferRepeated   = errors.New("offer already presented")
	ErrOfferOutOfOrder = errors.New("offer violates ladder order")
	ErrInvalidEnum     = errors.New("invalid enum value")
)

var (
	emailExactPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	emailFindPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// ValidEmail reports whether s is a local@domain.tld shaped address.
func ValidEmail(s string) bool {
	return emailExactPattern.MatchString(strings.TrimSpace(s))
}

// FindEmail returns the first email-shaped token in free text, or "".
func FindEmail(text string) string {
	return emailFindPattern.FindString(text)
}

/* ------------------------------ Constructors ----------------------------- */

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Outcome:   OutcomeInProgress,
		UpdatedAt: now.UTC(),
	}
}

/* -------------------------------- Mutators ------------------------------- */

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn appends one transcript entry. Entries are never altered,
// reordered, or removed afterwards.
func (s *ConversationState) AppendTurn(speaker Speaker, text string) {
	s.Transcript = append(s.Transcript, Turn{Speaker: speaker, Text: text})
}

// LastCustomerText returns the newest customer entry, or "".
func (s *ConversationState) LastCustomerText() string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Speaker == SpeakerCustomer {
			return s.Transcript[i].Text
		}
	}
	return ""
}

// SetEmail records the customer email. The first valid value wins for the
// whole session: empty input is a no-op, a malformed value is rejected, and a
// conflicting value is rejected without overwriting.
func (s *ConversationState) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if !ValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrEmailMalformed, email)
	}
	if s.CustomerEmail != "" {
		if strings.EqualFold(s.CustomerEmail, email) {
			return nil
		}
		return fmt.Errorf("%w: have %q, got %q", ErrEmailConflict, s.CustomerEmail, email)
	}
	s.CustomerEmail = email
	return nil
}

// RecordOffer appends an offer to OffersPresented. Repeats are rejected, and
// standard ladder offers must be recorded in ladder order. OfferReplaceDevice
// may be interleaved at any point (escalation override).
func (s *ConversationState) RecordOffer(id OfferID) error {
	for _, seen := range s.OffersPresented {
		if seen == id {
			return fmt.Errorf("%w: %s", ErrOfferRepeated, id)
		}
	}
	if idx := ladderIndex(id); idx >= 0 {
		for _, seen := range s.OffersPresented {
			if prev := ladderIndex(seen); prev >= 0 && prev > idx {
				return fmt.Errorf("%w: %s after %s", ErrOfferOutOfOrder, id, seen)
			}
		}
	}
	s.OffersPresented = append(s.OffersPresented, id)
	return nil
}

// OfferPresented reports whether id is already recorded.
func (s *ConversationState) OfferPresented(id OfferID) bool {
	for _, seen := range s.OffersPresented {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkComplete flips the one-way completion flag.
func (s *ConversationState) MarkComplete() {
	s.SessionComplete = true
}

func ladderIndex(id OfferID) int {
	for i, rung := range Ladder() {
		if rung == id {
			return i
		}
	}
	return -1
}

/* ------------------------------- Inspection ------------------------------ */

// Clone returns a deep copy. The engine runs every turn against a clone so a
// failed turn leaves the stored state untouched.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	dup := *s
	if s.Transcript != nil {
		dup.Transcript = append([]Turn(nil), s.Transcript...)
	}
	if s.OffersPresented != nil {
		dup.OffersPresented = append([]OfferID(nil), s.OffersPresented...)
	}
	if s.CustomerProfile != nil {
		dup.CustomerProfile = make(Profile, len(s.CustomerProfile))
		for k, v := range s.CustomerProfile {
			dup.CustomerProfile[k] = v
		}
	}
	return &dup
}

func (s *ConversationState) Validate() error {
	switch s.Intent {
	case IntentUnset, IntentRetention, IntentTechSupport, IntentBilling, IntentOther:
	default:
		return fmt.Errorf("%w: intent=%q", ErrInvalidEnum, s.Intent)
	}
	switch s.CancellationReason {
	case ReasonUnset, ReasonFinancialHardship, ReasonProductIssues, ReasonServiceValue:
	default:
		return fmt.Errorf("%w: cancellation_reason=%q", ErrInvalidEnum, s.CancellationReason)
	}
	switch s.Outcome {
	case OutcomeInProgress, OutcomeRetained, OutcomeCancel:
	default:
		return fmt.Errorf("%w: outcome=%q", ErrInvalidEnum, s.Outcome)
	}
	if s.CustomerEmail != "" && !ValidEmail(s.CustomerEmail) {
		return fmt.Errorf("%w: customer_email=%q", ErrEmailMalformed, s.CustomerEmail)
	}
	seen := make(map[OfferID]struct{}, len(s.OffersPresented))
	for _, id := range s.OffersPresented {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrOfferRepeated, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidIntent reports whether v is a known classified intent value.
func ValidIntent(v Intent) bool {
	switch v {
	case IntentRetention, IntentTechSupport, IntentBilling, IntentOther:
		return true
	}
	return false
}

// ValidReason reports whether v is a known cancellation reason.
func ValidReason(v Reason) bool {
	switch v {
	case ReasonFinancialHardship, ReasonProductIssues, ReasonServiceValue:
		return true
	}
	return false
}

// ValidOutcome reports whether v is a known negotiation outcome.
func ValidOutcome(v Outcome) bool {
	switch v {
	case OutcomeInProgress, OutcomeRetained, OutcomeCancel:
		return true
	}
	return false
}
