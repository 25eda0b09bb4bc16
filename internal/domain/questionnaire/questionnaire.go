// Package questionnaire holds the static item to category mapping and the
// discrete answer levels.
package questionnaire

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var bankYAML []byte

// Level is one of the five discrete answer values.
type Level int

// Answer levels, from strongly disagree to strongly agree.
const (
	StronglyDisagree Level = 0
	Disagree         Level = 10
	Neutral          Level = 20
	Agree            Level = 30
	StronglyAgree    Level = 40
)

// Levels lists every valid level in ascending order.
var Levels = []Level{StronglyDisagree, Disagree, Neutral, Agree, StronglyAgree}

// Valid reports whether l is one of the five discrete levels.
func (l Level) Valid() bool {
	switch l {
	case StronglyDisagree, Disagree, Neutral, Agree, StronglyAgree:
		return true
	}
	return false
}

// Answers maps item identifiers to the chosen level.
type Answers map[int]Level

// Category is a scored trait: the sum of its mapped items.
type Category struct {
	Name     string `yaml:"name" json:"name"`
	Items    []int  `yaml:"items" json:"items"`
	MaxScore int    `yaml:"max_score" json:"max_score"`
}

// Bank is the immutable, ordered list of categories. Declaration order is
// significant: it breaks ties in the ranking.
type Bank struct {
	categories []Category
	items      map[int]string // item -> owning category
}

type bankFile struct {
	Categories []Category `yaml:"categories"`
}

// Load parses and validates a bank from YAML.
func Load(r io.Reader) (*Bank, error) {
	var f bankFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	return New(f.Categories)
}

// New validates categories and builds a Bank from a private copy of them.
func New(categories []Category) (*Bank, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidBank)
	}
	b := &Bank{
		categories: make([]Category, len(categories)),
		items:      make(map[int]string),
	}
	for i, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrInvalidBank, i)
		}
		if len(c.Items) == 0 {
			return nil, fmt.Errorf("%w: category %q has no items", ErrInvalidBank, name)
		}
		for _, item := range c.Items {
			if owner, dup := b.items[item]; dup {
				return nil, fmt.Errorf("%w: item %d mapped to both %q and %q", ErrInvalidBank, item, owner, name)
			}
			b.items[item] = name
		}
		b.categories[i] = Category{
			Name:     name,
			Items:    append([]int(nil), c.Items...),
			MaxScore: c.MaxScore,
		}
	}
	return b, nil
}

var (
	defaultOnce sync.Once
	defaultBank *Bank
)

// Default returns the embedded bank. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Bank {
	defaultOnce.Do(func() {
		b, err := Load(bytes.NewReader(bankYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded question bank: %v", err))
		}
		defaultBank = b
	})
	return defaultBank
}

// Categories returns a copy of the categories in declaration order.
func (b *Bank) Categories() []Category {
	out := make([]Category, len(b.categories))
	for i, c := range b.categories {
		out[i] = Category{Name: c.Name, Items: append([]int(nil), c.Items...), MaxScore: c.MaxScore}
	}
	return out
}

// ItemIDs returns every item identifier in ascending order.
func (b *Bank) ItemIDs() []int {
	ids := make([]int, 0, len(b.items))
	for id := range b.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of items in the bank.
func (b *Bank) Len() int { return len(b.items) }

// Validate checks answers against the bank. Levels must be valid and items
// known; when complete is true every item must be answered. Scoring itself
// never calls this.
func (b *Bank) Validate(answers Answers, complete bool) error {
	for item, lvl := range answers {
		if _, ok := b.items[item]; !ok {
			return fmt.Errorf("%w: item %d", ErrUnknownItem, item)
		}
		if !lvl.Valid() {
			return fmt.Errorf("%w: item %d has level %d", ErrInvalidLevel, item, lvl)
		}
	}
	if complete {
		var missing []int
		for _, id := range b.ItemIDs() {
			if _, ok := answers[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %d unanswered, first is item %d", ErrIncomplete, len(missing), missing[0])
		}
	}
	return nil
}
