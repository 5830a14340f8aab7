package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

const fallbackTier = "regular"

// RulesFile is an offer catalog loaded from a JSON rules file. The file is
// keyed by cancellation reason, then by "<tier>_customers". The
// product_issues reason nests one more level by issue category; a lookup
// merges every category for the tier.
type RulesFile struct {
	rules map[statex.Reason]reasonRules
}

type reasonRules struct {
	flat   map[string][]contractx.Offer
	nested map[string]map[string][]contractx.Offer
}

func LoadRules(path string) (*RulesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read offer rules %s: %w", path, err)
	}

	var doc map[statex.Reason]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse offer rules %s: %w", path, err)
	}

	rules := make(map[statex.Reason]reasonRules, len(doc))
	for reason, node := range doc {
		if !statex.ValidReason(reason) || reason == statex.ReasonUnset {
			return nil, fmt.Errorf("offer rules %s: unknown reason %q", path, reason)
		}
		var flat map[string][]contractx.Offer
		if err := json.Unmarshal(node, &flat); err == nil {
			rules[reason] = reasonRules{flat: flat}
			continue
		}
		var nested map[string]map[string][]contractx.Offer
		if err := json.Unmarshal(node, &nested); err != nil {
			return nil, fmt.Errorf("offer rules %s: reason %q: %w", path, reason, err)
		}
		rules[reason] = reasonRules{nested: nested}
	}

	log.Info().Str("path", path).Int("reasons", len(rules)).Msg("offer rules loaded")
	return &RulesFile{rules: rules}, nil
}

// Lookup returns the ordered offers for the tier and reason. An unknown tier
// falls back to the regular tier; an unknown reason is an error.
func (r *RulesFile) Lookup(ctx context.Context, tier string, reason statex.Reason) ([]contractx.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := r.rules[reason]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownReason, reason)
	}

	key := tierKey(tier)
	if node.flat != nil {
		offers, ok := node.flat[key]
		if !ok {
			offers = node.flat[tierKey(fallbackTier)]
		}
		return append([]contractx.Offer(nil), offers...), nil
	}

	// Merge every issue category, in a stable order.
	categories := make([]string, 0, len(node.nested))
	for category := range node.nested {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var merged []contractx.Offer
	for _, category := range categories {
		byTier := node.nested[category]
		offers, ok := byTier[key]
		if !ok {
			offers = byTier[tierKey(fallbackTier)]
		}
		merged = append(merged, offers...)
	}
	return dedupeOffers(merged), nil
}

func tierKey(tier string) string {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier == "" {
		tier = fallbackTier
	}
	return tier + "_customers"
}

func dedupeOffers(offers []contractx.Offer) []contractx.Offer {
	seen := make(map[statex.OfferID]struct{}, len(offers))
	out := offers[:0]
	for _, offer := range offers {
		if _, ok := seen[offer.ID]; ok {
			continue
		}
		seen[offer.ID] = struct{}{}
		out = append(out, offer)
	}
	return out
}
