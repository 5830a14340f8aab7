package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/techflow/careflow/agent/contract"
	openrouterx "github.com/techflow/careflow/pkg/openrouter"
)

// Role names the five generation roles of the workflow. TechSupport and
// Billing share a response schema but carry different instructions.
type Role string

const (
	RoleTriage      Role = "triage"
	RoleRetention   Role = "retention"
	RoleProcessor   Role = "processor"
	RoleTechSupport Role = "tech_support"
	RoleBilling     Role = "billing"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel          string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	RetentionModel       string  `envconfig:"RETENTION_MODEL" split_words:"true"`
	ProcessorModel       string  `envconfig:"PROCESSOR_MODEL" split_words:"true"`
	SupportModel         string  `envconfig:"SUPPORT_MODEL" split_words:"true"`
	TriageTemperature    float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	RetentionTemperature float32 `envconfig:"RETENTION_TEMPERATURE" split_words:"true" default:"-1"`
	ProcessorTemperature float32 `envconfig:"PROCESSOR_TEMPERATURE" split_words:"true" default:"-1"`
	SupportTemperature   float32 `envconfig:"SUPPORT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterConfig exposes the base settings without role overrides, used
// for the raw SDK client.
func (c Config) OpenRouterConfig() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	case RoleRetention:
		if v := strings.TrimSpace(c.RetentionModel); v != "" {
			modelName = v
		}
		if c.RetentionTemperature >= 0 {
			temp = c.RetentionTemperature
		}
	case RoleProcessor:
		if v := strings.TrimSpace(c.ProcessorModel); v != "" {
			modelName = v
		}
		if c.ProcessorTemperature >= 0 {
			temp = c.ProcessorTemperature
		}
	case RoleTechSupport, RoleBilling:
		if v := strings.TrimSpace(c.SupportModel); v != "" {
			modelName = v
		}
		if c.SupportTemperature >= 0 {
			temp = c.SupportTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
