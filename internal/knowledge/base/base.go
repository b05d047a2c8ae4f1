// Package base holds the immutable, highest-priority facts keyed by
// entity name. Base facts are write-once and outrank any derived
// definition.
package base

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/store"
)

// Knowledge is the BaseKnowledge facade.
type Knowledge struct {
	store store.Store
}

// New builds a Knowledge facade over store.
func New(s store.Store) *Knowledge {
	return &Knowledge{store: s}
}

// AddFact inserts a new base fact. Refuses on existing name with
// ErrImmutable: base facts are write-once by design.
func (k *Knowledge) AddFact(ctx context.Context, name, content, category, description string) error {
	fact := &store.BaseFact{
		EntityName:  name,
		Content:     content,
		Category:    category,
		Description: description,
		Confidence:  1.0,
		Priority:    100,
		Immutable:   true,
	}
	if err := k.store.AddBaseFact(ctx, fact); err != nil {
		return fmt.Errorf("add base fact %q: %w", name, err)
	}
	return nil
}

// Get resolves a base fact by exact name, falling back to a
// case-insensitive match. Returns ErrNotFound if neither resolves.
func (k *Knowledge) Get(ctx context.Context, name string) (*store.BaseFact, error) {
	fact, err := k.store.GetBaseFact(ctx, name)
	if err == nil {
		return fact, nil
	}
	if errors.Is(err, errs.ErrNotFound) {
		return k.store.GetBaseFact(ctx, strings.ToLower(name))
	}
	return nil, err
}

// ConflictsWith reports whether a base fact exists for name whose
// normalised content differs from candidate. A missing fact never
// conflicts.
func (k *Knowledge) ConflictsWith(ctx context.Context, name, candidate string) (bool, error) {
	fact, err := k.Get(ctx, name)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return normalise(fact.Content) != normalise(candidate), nil
}

// RenderPromptBlock groups every base fact by its fixed category order
// into a markdown block suitable for PromptLibrary slot substitution.
// Categories outside categoryOrder are appended last, sorted by name.
func (k *Knowledge) RenderPromptBlock(facts []*store.BaseFact) string {
	byCategory := make(map[string][]*store.BaseFact)
	for _, f := range facts {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	order := append([]string{}, categoryOrder...)
	for cat := range byCategory {
		if !contains(order, cat) {
			order = append(order, cat)
		}
	}
	sort.SliceStable(order[len(categoryOrder):], func(i, j int) bool {
		return order[len(categoryOrder)+i] < order[len(categoryOrder)+j]
	})

	var b strings.Builder
	for _, cat := range order {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", strings.ToUpper(cat[:1])+cat[1:])
		for _, f := range items {
			fmt.Fprintf(&b, "- %s: %s\n", f.EntityName, f.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
