// Package knowledge provides the policy retriever that grounds retention and
// support replies. The index is built once from a directory of plain-text
// policy documents and scores snippets by token overlap with the query.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
)

var ErrEmptyIndex = errors.New("knowledge index is empty")

const defaultTopK = 3

// Index is an in-memory snippet index. It is immutable after construction and
// safe for concurrent retrieval.
type Index struct {
	snippets []contractx.Snippet
	tokens   []map[string]struct{}
}

// NewIndex builds an index over the given snippets.
func NewIndex(snippets []contractx.Snippet) (*Index, error) {
	if len(snippets) == 0 {
		return nil, ErrEmptyIndex
	}
	idx := &Index{
		snippets: append([]contractx.Snippet(nil), snippets...),
		tokens:   make([]map[string]struct{}, len(snippets)),
	}
	for i, s := range idx.snippets {
		idx.tokens[i] = tokenSet(s.Text)
	}
	return idx, nil
}

// LoadDir builds an index from every .txt and .md file under dir. Each
// paragraph becomes one snippet, identified by file name and position.
func LoadDir(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir %s: %w", dir, err)
	}

	var snippets []contractx.Snippet
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read knowledge file %s: %w", entry.Name(), err)
		}
		for i, para := range splitParagraphs(string(raw)) {
			snippets = append(snippets, contractx.Snippet{
				SourceID: fmt.Sprintf("%s#%d", entry.Name(), i),
				Text:     para,
			})
		}
	}

	idx, err := NewIndex(snippets)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", dir).Int("snippets", len(snippets)).Msg("knowledge index loaded")
	return idx, nil
}

// Retrieve returns the k snippets with the highest token overlap against the
// query. Ties break on index order so results are deterministic.
func (x *Index) Retrieve(ctx context.Context, query string, k int) ([]contractx.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = defaultTopK
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type scored struct {
		pos   int
		score int
	}
	matches := make([]scored, 0, len(x.snippets))
	for i, set := range x.tokens {
		n := overlap(queryTokens, set)
		if n > 0 {
			matches = append(matches, scored{pos: i, score: n})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	out := make([]contractx.Snippet, 0, len(matches))
	for _, m := range matches {
		out = append(out, x.snippets[m.pos])
	}
	return out, nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if len(tok) > 2 {
			set[tok] = struct{}{}
		}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
