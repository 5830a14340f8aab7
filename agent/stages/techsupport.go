package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// minSupportAttempts distinct troubleshooting proposals must have been made
// before the stage may conclude without a hardware escalation.
const minSupportAttempts = 3

// TechSupport walks the customer through troubleshooting one step at a time.
// The session stays open until the issue is resolved or escalated to a
// hardware repair or replacement.
type TechSupport struct {
	model     contractx.SupportModel
	retriever contractx.Retriever
}

func NewTechSupport(model contractx.SupportModel, retriever contractx.Retriever) *TechSupport {
	return &TechSupport{model: model, retriever: retriever}
}

func (s *TechSupport) Name() contractx.StageName {
	return contractx.StageTechSupport
}

func (s *TechSupport) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	lastText := st.LastCustomerText()

	var guidance []contractx.Snippet
	if lastText != "" {
		snippets, err := s.retriever.Retrieve(ctx, lastText, retentionSnippetCount)
		if err != nil {
			log.Warn().Err(err).Msg("troubleshooting retrieval degraded to empty context")
		} else {
			guidance = snippets
		}
	}

	resp, err := s.model.Assist(ctx, contractx.SupportRequest{
		Transcript: st.Transcript,
		Context:    troubleshootingContext(guidance, st.SupportAttempts),
	})
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	resolved := resp.Resolved
	if resolved && st.SupportAttempts+1 < minSupportAttempts && !mentionsEscalation(resp.Message) {
		log.Warn().
			Int("attempts", st.SupportAttempts+1).
			Msg("model concluded early, keeping troubleshooting open")
		resolved = false
	}

	return contractx.StageUpdate{
		Message:         resp.Message,
		SupportAttempt:  true,
		SessionComplete: boolPtr(resolved),
	}, nil
}

func troubleshootingContext(guidance []contractx.Snippet, attempts int) string {
	var b strings.Builder

	b.WriteString("## Troubleshooting Guidance\n")
	if len(guidance) == 0 {
		b.WriteString("No relevant guidance found.\n")
	} else {
		for i, snippet := range guidance {
			fmt.Fprintf(&b, "[%d] From %s:\n%s\n\n", i+1, snippet.SourceID, snippet.Text)
		}
	}

	fmt.Fprintf(&b, "## Steps Already Attempted: %d\n", attempts)

	return strings.TrimRight(b.String(), "\n")
}
