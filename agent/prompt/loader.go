package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/techflow/careflow/agent/contract"
)

var (
	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/retention.txt
	retentionRaw string

	//go:embed template/processor.txt
	processorRaw string

	//go:embed template/tech_support.txt
	techSupportRaw string

	//go:embed template/billing.txt
	billingRaw string
)

// PromptSet holds the role instructions for the five stages.
type PromptSet struct {
	Triage      string
	Retention   string
	Processor   string
	TechSupport string
	Billing     string
}

// LoadPromptSet returns the trimmed embedded instructions. Safe to call
// concurrently; the embed is compile-time.
func LoadPromptSet() (PromptSet, error) {
	set := PromptSet{
		Triage:      strings.TrimSpace(triageRaw),
		Retention:   strings.TrimSpace(retentionRaw),
		Processor:   strings.TrimSpace(processorRaw),
		TechSupport: strings.TrimSpace(techSupportRaw),
		Billing:     strings.TrimSpace(billingRaw),
	}

	for role, text := range map[string]string{
		"triage":       set.Triage,
		"retention":    set.Retention,
		"processor":    set.Processor,
		"tech_support": set.TechSupport,
		"billing":      set.Billing,
	} {
		if text == "" {
			return PromptSet{}, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, role)
		}
	}

	return set, nil
}
