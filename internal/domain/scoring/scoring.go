// Package scoring aggregates questionnaire answers into per-category totals,
// percentages and a ranking.
package scoring

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/okian/dons/internal/domain/questionnaire"
)

// Divisor is the single percentage base shared by every category. It is
// deliberately smaller than the 520 point per-category maximum, so percent
// can exceed 100. Do not clamp.
const Divisor = 280

// Entry is one ranked category.
type Entry struct {
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
}

// Ranking is ordered by total descending; ties keep declaration order.
type Ranking []Entry

// Top returns at most n leading entries.
func (r Ranking) Top(n int) Ranking {
	if n < 0 {
		n = 0
	}
	if n > len(r) {
		n = len(r)
	}
	return r[:n:n]
}

// JSON returns an indented machine-readable serialization of the ranking.
// A nil ranking serializes as an empty array.
func (r Ranking) JSON() string {
	if r == nil {
		r = Ranking{}
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Percent converts a category total into the rounded percentage of Divisor.
func Percent(total int) int {
	return int(math.Round(float64(total) / Divisor * 100))
}

// Engine scores answers against a fixed set of categories. It is safe for
// concurrent use: the categories are copied at construction and never
// mutated.
type Engine struct {
	categories []questionnaire.Category
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCategories replaces the default embedded bank.
func WithCategories(categories []questionnaire.Category) Option {
	return func(e *Engine) {
		if len(categories) > 0 {
			e.categories = categories
		}
	}
}

// NewEngine creates an engine backed by the embedded bank unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.categories == nil {
		e.categories = questionnaire.Default().Categories()
	}
	return e
}

// Score computes the ranking for answers. Missing answers count as zero;
// Score never fails.
func (e *Engine) Score(answers questionnaire.Answers) Ranking {
	return Score(answers, e.categories)
}

// Score computes the ranking for answers against categories.
func Score(answers questionnaire.Answers, categories []questionnaire.Category) Ranking {
	ranking := make(Ranking, len(categories))
	for i, c := range categories {
		total := 0
		for _, item := range c.Items {
			total += int(answers[item])
		}
		ranking[i] = Entry{Name: c.Name, Total: total, Percent: Percent(total)}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Total > ranking[j].Total
	})
	return ranking
}
