package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// Processor is the terminal fulfillment stage: it durably records the decided
// action, confirms it to the customer, and marks the session complete. It
// never attempts further negotiation.
type Processor struct {
	model     contractx.ProcessorModel
	retriever contractx.Retriever
	actions   contractx.ActionLog
	now       func() time.Time
}

func NewProcessor(
	model contractx.ProcessorModel,
	retriever contractx.Retriever,
	actions contractx.ActionLog,
	now func() time.Time,
) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{
		model:     model,
		retriever: retriever,
		actions:   actions,
		now:       now,
	}
}

func (s *Processor) Name() contractx.StageName {
	return contractx.StageProcessor
}

func (s *Processor) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	if st.Outcome == statex.OutcomeInProgress {
		return contractx.StageUpdate{}, fmt.Errorf("%w: processor requires a decided outcome", contractx.ErrValidation)
	}

	action := resolveAction(st)
	customerID := resolveCustomerID(st)

	// Log durability is best-effort for the conversation: a failed write is
	// surfaced to operators, never to the customer.
	if err := s.actions.Append(ctx, contractx.ActionRecord{
		Timestamp:  s.now().UTC(),
		CustomerID: customerID,
		Action:     action,
	}); err != nil {
		log.Error().Err(err).Str("customer_id", customerID).Str("action", action).
			Msg("action log append failed")
	}

	resp, err := s.model.Confirm(ctx, contractx.ProcessorRequest{
		Transcript: st.Transcript,
		Context:    s.processingContext(ctx, st, action),
	})
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	return contractx.StageUpdate{
		Message:         resp.Message,
		SessionComplete: boolPtr(true),
	}, nil
}

// resolveAction picks the logged action: the agreed retention action when one
// exists, otherwise the default for the outcome.
func resolveAction(st *statex.ConversationState) string {
	if st.RetentionAction != "" {
		return st.RetentionAction
	}
	if st.Outcome == statex.OutcomeRetained {
		return "retained"
	}
	return "cancelled"
}

func resolveCustomerID(st *statex.ConversationState) string {
	if id := st.CustomerProfile.Get("customer_id"); id != "" {
		return id
	}
	if st.CustomerEmail != "" {
		return st.CustomerEmail
	}
	return st.SessionID
}

func (s *Processor) processingContext(ctx context.Context, st *statex.ConversationState, action string) string {
	var b strings.Builder

	name := st.CustomerProfile.Get("name")
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "## Customer: %s (%s)\n", name, st.CustomerEmail)
	if plan := st.CustomerProfile.Get("plan_type"); plan != "" {
		fmt.Fprintf(&b, "## Plan: %s\n", plan)
	}
	fmt.Fprintf(&b, "## Outcome: %s\n", st.Outcome)
	fmt.Fprintf(&b, "## Action Processed: %s\n", action)
	fmt.Fprintf(&b, "## Confirmation Reference: %s\n", uuid.NewString())

	query := "cancellation processing refund billing " + string(st.Outcome)
	snippets, err := s.retriever.Retrieve(ctx, query, retentionSnippetCount)
	if err != nil {
		log.Warn().Err(err).Msg("processing policy retrieval degraded to empty context")
		snippets = nil
	}
	b.WriteString("## Policy Context:\n")
	if len(snippets) == 0 {
		b.WriteString("No relevant policy information found.\n")
	} else {
		for i, snippet := range snippets {
			fmt.Fprintf(&b, "[%d] From %s:\n%s\n\n", i+1, snippet.SourceID, snippet.Text)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
