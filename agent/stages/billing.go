package stages

import (
	"context"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

// Billing answers charge questions conversationally. The session closes only
// once the customer's question is fully answered.
type Billing struct {
	model contractx.SupportModel
}

func NewBilling(model contractx.SupportModel) *Billing {
	return &Billing{model: model}
}

func (s *Billing) Name() contractx.StageName {
	return contractx.StageBilling
}

func (s *Billing) Execute(ctx context.Context, st *statex.ConversationState) (contractx.StageUpdate, error) {
	resp, err := s.model.Assist(ctx, contractx.SupportRequest{
		Transcript: st.Transcript,
	})
	if err != nil {
		return contractx.StageUpdate{}, err
	}

	return contractx.StageUpdate{
		Message:         resp.Message,
		SessionComplete: boolPtr(resp.Resolved),
	}, nil
}
