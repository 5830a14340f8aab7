package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

/* --------------------------------- Triage -------------------------------- */

type triageModel struct {
	runner compose.Runnable[map[string]any, triageLLMOutput]
}

type triageLLMOutput struct {
	Message string `json:"message"`
	Intent  string `json:"intent"`
	Reason  string `json:"reason"`
	Email   string `json:"email"`
}

func newTriageModel(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*triageModel, error) {
	runner, err := compileStructuredLLMGraph[triageLLMOutput](ctx, chatModel, systemPrompt, "triage.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile triage graph: %v", contractx.ErrModelInvoke, err)
	}
	return &triageModel{runner: runner}, nil
}

func (m *triageModel) Classify(ctx context.Context, req contractx.TriageRequest) (contractx.TriageResponse, error) {
	payload := map[string]any{
		"transcript":  renderTranscript(req.Transcript),
		"known_email": req.KnownEmail,
	}
	out, err := invokeStructured(ctx, m.runner, payload, "triage")
	if err != nil {
		return contractx.TriageResponse{}, err
	}
	return parseTriageOutput(out)
}

func parseTriageOutput(out triageLLMOutput) (contractx.TriageResponse, error) {
	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.TriageResponse{}, fmt.Errorf("%w: triage message is empty", contractx.ErrSchemaViolation)
	}
	rawIntent := strings.ToUpper(strings.TrimSpace(out.Intent))
	if rawIntent == "" {
		return contractx.TriageResponse{}, fmt.Errorf("%w: triage intent is missing", contractx.ErrSchemaViolation)
	}

	intent := statex.Intent(rawIntent)
	if !statex.ValidIntent(intent) {
		// Fail closed: an unrecognized label routes nowhere rather than wrong.
		intent = statex.IntentOther
	}

	reason := statex.Reason(strings.ToLower(strings.TrimSpace(out.Reason)))
	if !statex.ValidReason(reason) {
		reason = statex.ReasonUnset
	}

	return contractx.TriageResponse{
		Message: message,
		Intent:  intent,
		Reason:  reason,
		Email:   strings.TrimSpace(out.Email),
	}, nil
}

/* ------------------------------- Retention ------------------------------- */

type retentionModel struct {
	runner compose.Runnable[map[string]any, retentionLLMOutput]
}

type retentionLLMOutput struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
	Action  string `json:"action"`
}

func newRetentionModel(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*retentionModel, error) {
	runner, err := compileStructuredLLMGraph[retentionLLMOutput](ctx, chatModel, systemPrompt, "retention.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile retention graph: %v", contractx.ErrModelInvoke, err)
	}
	return &retentionModel{runner: runner}, nil
}

func (m *retentionModel) Negotiate(ctx context.Context, req contractx.RetentionRequest) (contractx.RetentionResponse, error) {
	payload := map[string]any{
		"transcript": renderTranscript(req.Transcript),
		"context":    req.Context,
	}
	out, err := invokeStructured(ctx, m.runner, payload, "retention")
	if err != nil {
		return contractx.RetentionResponse{}, err
	}
	return parseRetentionOutput(out)
}

func parseRetentionOutput(out retentionLLMOutput) (contractx.RetentionResponse, error) {
	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.RetentionResponse{}, fmt.Errorf("%w: retention message is empty", contractx.ErrSchemaViolation)
	}

	outcome := statex.Outcome(strings.ToUpper(strings.TrimSpace(out.Outcome)))
	if outcome == "" {
		outcome = statex.OutcomeInProgress
	}
	if !statex.ValidOutcome(outcome) {
		return contractx.RetentionResponse{}, fmt.Errorf("%w: invalid outcome=%q", contractx.ErrSchemaViolation, out.Outcome)
	}

	return contractx.RetentionResponse{
		Message: message,
		Outcome: outcome,
		Action:  strings.ToLower(strings.TrimSpace(out.Action)),
	}, nil
}

/* ------------------------------- Processor ------------------------------- */

type processorModel struct {
	runner compose.Runnable[map[string]any, processorLLMOutput]
}

type processorLLMOutput struct {
	Message string `json:"message"`
}

func newProcessorModel(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*processorModel, error) {
	runner, err := compileStructuredLLMGraph[processorLLMOutput](ctx, chatModel, systemPrompt, "processor.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile processor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &processorModel{runner: runner}, nil
}

func (m *processorModel) Confirm(ctx context.Context, req contractx.ProcessorRequest) (contractx.ProcessorResponse, error) {
	payload := map[string]any{
		"transcript": renderTranscript(req.Transcript),
		"context":    req.Context,
	}
	out, err := invokeStructured(ctx, m.runner, payload, "processor")
	if err != nil {
		return contractx.ProcessorResponse{}, err
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.ProcessorResponse{}, fmt.Errorf("%w: processor message is empty", contractx.ErrSchemaViolation)
	}
	return contractx.ProcessorResponse{Message: message}, nil
}

/* -------------------------------- Support -------------------------------- */

type supportModel struct {
	role   Role
	runner compose.Runnable[map[string]any, supportLLMOutput]
}

type supportLLMOutput struct {
	Message  string `json:"message"`
	Resolved bool   `json:"resolved"`
}

func newSupportModel(ctx context.Context, role Role, chatModel einomodel.BaseChatModel, systemPrompt string) (*supportModel, error) {
	runner, err := compileStructuredLLMGraph[supportLLMOutput](ctx, chatModel, systemPrompt, string(role)+".model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s graph: %v", contractx.ErrModelInvoke, role, err)
	}
	return &supportModel{role: role, runner: runner}, nil
}

func (m *supportModel) Assist(ctx context.Context, req contractx.SupportRequest) (contractx.SupportResponse, error) {
	payload := map[string]any{
		"transcript": renderTranscript(req.Transcript),
		"context":    req.Context,
	}
	out, err := invokeStructured(ctx, m.runner, payload, string(m.role))
	if err != nil {
		return contractx.SupportResponse{}, err
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.SupportResponse{}, fmt.Errorf("%w: %s message is empty", contractx.ErrSchemaViolation, m.role)
	}
	return contractx.SupportResponse{
		Message:  message,
		Resolved: out.Resolved,
	}, nil
}

/* --------------------------------- Shared -------------------------------- */

func invokeStructured[T any](
	ctx context.Context,
	runner compose.Runnable[map[string]any, T],
	payload map[string]any,
	role string,
) (T, error) {
	var zero T
	input, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal %s payload: %v", contractx.ErrValidation, role, err)
	}
	out, err := runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return zero, fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, role, err)
	}
	return out, nil
}
