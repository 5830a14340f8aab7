package llm

import (
	"context"
	"fmt"

	contractx "github.com/techflow/careflow/agent/contract"
	promptx "github.com/techflow/careflow/agent/prompt"
)

type registryImpl struct {
	triage      contractx.TriageModel
	retention   contractx.RetentionModel
	processor   contractx.ProcessorModel
	techSupport contractx.SupportModel
	billing     contractx.SupportModel
}

func (r *registryImpl) Triage() contractx.TriageModel {
	return r.triage
}

func (r *registryImpl) Retention() contractx.RetentionModel {
	return r.retention
}

func (r *registryImpl) Processor() contractx.ProcessorModel {
	return r.processor
}

func (r *registryImpl) TechSupport() contractx.SupportModel {
	return r.techSupport
}

func (r *registryImpl) Billing() contractx.SupportModel {
	return r.billing
}

// NewRegistry builds the five role models from embedded instructions and the
// per-role chat-model configuration.
func NewRegistry(ctx context.Context, cfg Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts, err := promptx.LoadPromptSet()
	if err != nil {
		return nil, err
	}

	triageCfg := cfg.OpenRouterFor(RoleTriage)
	triageChat, err := triageCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create triage model: %v", contractx.ErrModelInvoke, err)
	}
	retentionCfg := cfg.OpenRouterFor(RoleRetention)
	retentionChat, err := retentionCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create retention model: %v", contractx.ErrModelInvoke, err)
	}
	processorCfg := cfg.OpenRouterFor(RoleProcessor)
	processorChat, err := processorCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create processor model: %v", contractx.ErrModelInvoke, err)
	}
	supportCfg := cfg.OpenRouterFor(RoleTechSupport)
	supportChat, err := supportCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create support model: %v", contractx.ErrModelInvoke, err)
	}

	triage, err := newTriageModel(ctx, triageChat, prompts.Triage)
	if err != nil {
		return nil, err
	}
	retention, err := newRetentionModel(ctx, retentionChat, prompts.Retention)
	if err != nil {
		return nil, err
	}
	processor, err := newProcessorModel(ctx, processorChat, prompts.Processor)
	if err != nil {
		return nil, err
	}
	techSupport, err := newSupportModel(ctx, RoleTechSupport, supportChat, prompts.TechSupport)
	if err != nil {
		return nil, err
	}
	billing, err := newSupportModel(ctx, RoleBilling, supportChat, prompts.Billing)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		triage:      triage,
		retention:   retention,
		processor:   processor,
		techSupport: techSupport,
		billing:     billing,
	}, nil
}
