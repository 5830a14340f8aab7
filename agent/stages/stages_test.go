package stages

import (
	"context"
	"testing"
	"time"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

/* --------------------------------- Fakes --------------------------------- */

type fakeTriageModel struct {
	resp  contractx.TriageResponse
	err   error
	calls int
}

func (f *fakeTriageModel) Classify(ctx context.Context, req contractx.TriageRequest) (contractx.TriageResponse, error) {
	f.calls++
	if f.err != nil {
		return contractx.TriageResponse{}, f.err
	}
	return f.resp, nil
}

type fakeRetentionModel struct {
	resp     contractx.RetentionResponse
	err      error
	calls    int
	lastReqs []contractx.RetentionRequest
}

func (f *fakeRetentionModel) Negotiate(ctx context.Context, req contractx.RetentionRequest) (contractx.RetentionResponse, error) {
	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	if f.err != nil {
		return contractx.RetentionResponse{}, f.err
	}
	return f.resp, nil
}

type fakeProcessorModel struct {
	resp  contractx.ProcessorResponse
	err   error
	calls int
}

func (f *fakeProcessorModel) Confirm(ctx context.Context, req contractx.ProcessorRequest) (contractx.ProcessorResponse, error) {
	f.calls++
	if f.err != nil {
		return contractx.ProcessorResponse{}, f.err
	}
	return f.resp, nil
}

type fakeSupportModel struct {
	resp     contractx.SupportResponse
	err      error
	calls    int
	lastReqs []contractx.SupportRequest
}

func (f *fakeSupportModel) Assist(ctx context.Context, req contractx.SupportRequest) (contractx.SupportResponse, error) {
	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	if f.err != nil {
		return contractx.SupportResponse{}, f.err
	}
	return f.resp, nil
}

type fakeRetriever struct {
	snippets []contractx.Snippet
	err      error
	queries  []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]contractx.Snippet, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

type fakeProfileStore struct {
	profile statex.Profile
	err     error
	calls   int
}

func (f *fakeProfileStore) Lookup(ctx context.Context, email string) (statex.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeOfferRules struct {
	offers []contractx.Offer
	err    error
	calls  int
}

func (f *fakeOfferRules) Lookup(ctx context.Context, tier string, reason statex.Reason) ([]contractx.Offer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

type fakeActionLog struct {
	records []contractx.ActionRecord
	err     error
}

func (f *fakeActionLog) Append(ctx context.Context, rec contractx.ActionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

/* -------------------------------- Helpers -------------------------------- */

func retentionState(t *testing.T, said string) *statex.ConversationState {
	t.Helper()
	st := statex.NewConversationState("s1", time.Now())
	st.Intent = statex.IntentRetention
	st.CancellationReason = statex.ReasonFinancialHardship
	if err := st.SetEmail("alice@example.com"); err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}
	st.AppendTurn(statex.SpeakerCustomer, said)
	return st
}

func TestNewSetRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewSet(Deps{})
	if err == nil {
		t.Fatal("NewSet() with no deps expected error")
	}
}
