package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
)

// QueryPlan is the normalised form of a free-text query.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse tokenises query with the same rules used at index time. A query made
// only of whitespace or punctuation yields a plan with no terms.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	plan.Terms = append(plan.Terms, tokenizer.Tokenize(query)...)
	return plan
}

// IsEmpty reports whether the plan carries no searchable terms.
func (p *QueryPlan) IsEmpty() bool {
	return len(p.Terms) == 0
}

// SingleTerm reports whether the query consisted of exactly one term.
func (p *QueryPlan) SingleTerm() bool {
	return len(p.Terms) == 1
}
