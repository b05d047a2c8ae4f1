// Package graph maps entity -> (definition?, [relatedInfo*]) with
// confidence, status, and base-knowledge override rules.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/copier"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("knowledge.graph")

// ItemKind tags a retrieved item's origin.
type ItemKind string

const (
	KindBase       ItemKind = "base"
	KindDefinition ItemKind = "definition"
	KindInfo       ItemKind = "info"
)

// ConfidenceBand buckets a confidence score for display.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Band classifies a raw confidence score.
func Band(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.9:
		return BandHigh
	case confidence >= 0.7:
		return BandMedium
	default:
		return BandLow
	}
}

// Item is one retrieved fact about an entity, ranked by (priority asc,
// confidence desc).
type Item struct {
	Kind       ItemKind
	EntityName string
	Content    string
	Confidence float64
	Priority   int
	Status     store.RelatedInfoStatus
}

// RetrieveResult is the KnowledgeGraph.Retrieve return shape.
type RetrieveResult struct {
	Entities []string
	Items    []Item
}

const (
	priorityBase       = 0
	priorityDefinition = 1
	priorityInfo       = 2
	defaultMaxItems    = 10
	relatedInfoPerName = 3
)

// Graph is the KnowledgeGraph facade.
type Graph struct {
	store   store.Store
	base    *base.Knowledge
	router  *llm.Router
}

// New builds a Graph over store, delegating base-knowledge conflict
// checks to kb.
func New(s store.Store, kb *base.Knowledge, router *llm.Router) *Graph {
	return &Graph{store: s, base: kb, router: router}
}

// SetDefinition writes an entity's definition. A conflicting base fact
// wins and, if the entity has no definition yet, the base content is
// persisted as an immutable definition so future reads see it directly.
func (g *Graph) SetDefinition(ctx context.Context, entityName, content, typ, source string, confidence float64) error {
	entity, err := g.store.GetOrCreateEntity(ctx, entityName)
	if err != nil {
		return fmt.Errorf("resolve entity %q: %w", entityName, err)
	}

	conflict, err := g.base.ConflictsWith(ctx, entityName, content)
	if err != nil {
		return fmt.Errorf("check base conflict for %q: %w", entityName, err)
	}
	if conflict {
		fact, err := g.base.Get(ctx, entityName)
		if err != nil {
			return fmt.Errorf("load conflicting base fact for %q: %w", entityName, err)
		}
		if _, err := g.store.GetDefinition(ctx, entity.UUID); errors.Is(err, errs.ErrNotFound) {
			if err := g.store.SetDefinition(ctx, &store.Definition{
				EntityUUID: entity.UUID, Content: fact.Content, Type: "base",
				Source: "base_knowledge", Confidence: fact.Confidence, Priority: fact.Priority,
				IsBaseKnowledge: true,
			}); err != nil {
				return fmt.Errorf("persist base definition for %q: %w", entityName, err)
			}
		}
		return fmt.Errorf("%w: base knowledge for %q conflicts with candidate definition", errs.ErrConflict, entityName)
	}

	return g.store.SetDefinition(ctx, &store.Definition{
		EntityUUID: entity.UUID, Content: content, Type: typ, Source: source, Confidence: confidence,
		Priority: priorityDefinition,
	})
}

// AddRelatedInfo adds or increments a related-info row by (entity,
// normalised content).
func (g *Graph) AddRelatedInfo(ctx context.Context, entityName, content, typ, source string, confidence float64, status store.RelatedInfoStatus) (*store.RelatedInfo, error) {
	entity, err := g.store.GetOrCreateEntity(ctx, entityName)
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", entityName, err)
	}
	if status == "" {
		status = store.StatusSuspected
	}
	return g.store.AddOrIncrementRelatedInfo(ctx, &store.RelatedInfo{
		EntityUUID: entity.UUID, Content: content, Type: typ, Source: source,
		Confidence: confidence, Status: status,
	})
}

type extractedNames struct {
	Entities []string `json:"entities"`
}

const extractPrompt = `You extract candidate entity names mentioned in a user query. ` +
	`Respond with strict JSON only: {"entities": ["name1", "name2"]}. ` +
	`If nothing is nameable, respond {"entities": []}.`

// Retrieve runs a Tool-tier entity-extraction step over query, then
// collects base fact / definition / related info per candidate name and
// returns a ranked, truncated item list.
func (g *Graph) Retrieve(ctx context.Context, query string, maxItems int) (*RetrieveResult, error) {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	names, err := g.extractEntities(ctx, query)
	if err != nil {
		log.WithError(err).Warn("entity extraction failed, returning empty retrieval")
		return &RetrieveResult{}, nil
	}

	var items []Item
	for _, name := range names {
		items = append(items, g.itemsForEntity(ctx, name)...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Confidence > items[j].Confidence
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	result := &RetrieveResult{Entities: names}
	if err := copier.Copy(&result.Items, &items); err != nil {
		return nil, fmt.Errorf("snapshot retrieved items: %w", err)
	}
	return result, nil
}

func (g *Graph) extractEntities(ctx context.Context, query string) ([]string, error) {
	if g.router == nil || !g.router.HasTier(llm.TierTool) {
		return nil, fmt.Errorf("%w: no tool-tier model configured for entity extraction", errs.ErrUpstream)
	}
	text, err := g.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: extractPrompt},
		{Role: "user", Content: query},
	}, llm.TierTool)
	if err != nil {
		return nil, err
	}
	var out extractedNames
	if err := jsonutil.StrictUnmarshal(text, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

func (g *Graph) itemsForEntity(ctx context.Context, name string) []Item {
	var items []Item

	if fact, err := g.base.Get(ctx, name); err == nil {
		items = append(items, Item{
			Kind: KindBase, EntityName: name, Content: fact.Content,
			Confidence: fact.Confidence, Priority: priorityBase,
		})
	}

	entity, err := g.store.GetEntityByName(ctx, name)
	if err != nil {
		return items
	}

	if def, err := g.store.GetDefinition(ctx, entity.UUID); err == nil {
		items = append(items, Item{
			Kind: KindDefinition, EntityName: name, Content: def.Content,
			Confidence: def.Confidence, Priority: priorityDefinition,
		})
	}

	related, err := g.store.ListRelatedInfo(ctx, entity.UUID, relatedInfoPerName)
	if err == nil {
		for _, r := range related {
			items = append(items, Item{
				Kind: KindInfo, EntityName: name, Content: r.Content,
				Confidence: r.Confidence, Priority: priorityInfo, Status: r.Status,
			})
		}
	}
	return items
}

// RenderContextBlock formats a RetrieveResult as a markdown block
// suitable for the PromptLibrary's relevant_knowledge slot.
func RenderContextBlock(result *RetrieveResult) string {
	if result == nil || len(result.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, it := range result.Items {
		fmt.Fprintf(&b, "- [%s/%s] %s: %s\n", it.Kind, Band(it.Confidence), it.EntityName, it.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
