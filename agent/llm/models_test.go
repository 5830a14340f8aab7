package llm

import (
	"errors"
	"testing"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

func TestParseTriageOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		out        triageLLMOutput
		wantIntent statex.Intent
		wantReason statex.Reason
		wantErr    error
	}{
		{
			name:       "well formed",
			out:        triageLLMOutput{Message: "hi", Intent: "RETENTION", Reason: "financial_hardship", Email: "a@example.com"},
			wantIntent: statex.IntentRetention,
			wantReason: statex.ReasonFinancialHardship,
		},
		{
			name:       "lowercase intent normalized",
			out:        triageLLMOutput{Message: "hi", Intent: "billing"},
			wantIntent: statex.IntentBilling,
		},
		{
			name:       "unknown intent fails closed to OTHER",
			out:        triageLLMOutput{Message: "hi", Intent: "SALES"},
			wantIntent: statex.IntentOther,
		},
		{
			name:       "unknown reason dropped",
			out:        triageLLMOutput{Message: "hi", Intent: "RETENTION", Reason: "bad vibes"},
			wantIntent: statex.IntentRetention,
			wantReason: statex.ReasonUnset,
		},
		{
			name:    "empty message rejected",
			out:     triageLLMOutput{Intent: "BILLING"},
			wantErr: contractx.ErrSchemaViolation,
		},
		{
			name:    "missing intent rejected",
			out:     triageLLMOutput{Message: "hi"},
			wantErr: contractx.ErrSchemaViolation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := parseTriageOutput(tt.out)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTriageOutput() error = %v", err)
			}
			if resp.Intent != tt.wantIntent {
				t.Fatalf("intent = %q, want %q", resp.Intent, tt.wantIntent)
			}
			if resp.Reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", resp.Reason, tt.wantReason)
			}
		})
	}
}

func TestParseRetentionOutput(t *testing.T) {
	t.Parallel()

	resp, err := parseRetentionOutput(retentionLLMOutput{Message: "done", Outcome: "retained", Action: "PAUSED_6_MONTHS"})
	if err != nil {
		t.Fatalf("parseRetentionOutput() error = %v", err)
	}
	if resp.Outcome != statex.OutcomeRetained {
		t.Fatalf("outcome = %q, want RETAINED", resp.Outcome)
	}
	if resp.Action != "paused_6_months" {
		t.Fatalf("action = %q, want normalized lowercase", resp.Action)
	}

	resp, err = parseRetentionOutput(retentionLLMOutput{Message: "still talking"})
	if err != nil {
		t.Fatalf("parseRetentionOutput() error = %v", err)
	}
	if resp.Outcome != statex.OutcomeInProgress {
		t.Fatalf("missing outcome should default to IN_PROGRESS, got %q", resp.Outcome)
	}

	_, err = parseRetentionOutput(retentionLLMOutput{Message: "hm", Outcome: "MAYBE"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("invalid outcome error = %v, want ErrSchemaViolation", err)
	}

	_, err = parseRetentionOutput(retentionLLMOutput{Outcome: "CANCEL"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("empty message error = %v, want ErrSchemaViolation", err)
	}
}

func TestRenderTranscript(t *testing.T) {
	t.Parallel()

	if got := renderTranscript(nil); got != "(no messages yet)" {
		t.Fatalf("empty transcript = %q", got)
	}

	got := renderTranscript([]statex.Turn{
		{Speaker: statex.SpeakerCustomer, Text: "I want to cancel"},
		{Speaker: statex.SpeakerAgent, Text: "Tell me more"},
	})
	want := "Customer: I want to cancel\nAgent: Tell me more"
	if got != want {
		t.Fatalf("renderTranscript() = %q, want %q", got, want)
	}
}
