// Package plugin holds the registry of externally provided context
// tools, relevance-scored per turn by a Tool-tier classifier with a
// substring-keyword fallback.
package plugin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
)

var log = obs.For("plugin")

// Context is handed to a plugin's Invoke call.
type Context struct {
	UserInput string
}

// Result is a plugin's contribution to the composite context block.
type Result struct {
	Context string
}

// Plugin is the contract every registered context provider satisfies:
// a static descriptor plus an invoke call.
type Plugin interface {
	ToolID() string
	Name() string
	Description() string
	Keywords() []string
	Enabled() bool
	Invoke(ctx context.Context, pctx Context) (Result, error)
}

// Registry is a mutex-guarded collection of registered plugins, keyed
// by tool id and kept in registration order for stable index-based
// matching.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Plugin
	order []string
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Plugin)}
}

// Register adds p to the registry. Re-registering a tool id overwrites
// the prior entry while keeping its original position in order.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[p.ToolID()]; !exists {
		r.order = append(r.order, p.ToolID())
	}
	r.byID[p.ToolID()] = p
}

// Enabled returns every registered plugin with Enabled() true, in
// registration order.
func (r *Registry) Enabled() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		if p := r.byID[id]; p != nil && p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns a registered plugin by tool id.
func (r *Registry) Get(toolID string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[toolID]
	return p, ok
}

// Invoker gathers PluginInvoker context for a turn.
type Invoker struct {
	registry *Registry
	router   *llm.Router
}

// New builds an Invoker over registry, using router for relevance
// scoring when available.
func New(registry *Registry, router *llm.Router) *Invoker {
	return &Invoker{registry: registry, router: router}
}

const relevancePrompt = `Decide which of the following tools are relevant to the user's message. ` +
	`Respond with the tool ids or 1-based indices, comma-separated (Chinese or Latin comma), or "none" if no tool applies.

Tools:
%s

User message: %s`

// GatherContext scores the enabled plugin set for relevance to
// userInput, invokes every relevant plugin, and concatenates their
// context strings into a single system block prefixed by plugin name.
// A Tool-tier classifier call failure or unavailability falls back to
// substring keyword matching; per-plugin invoke failures are logged and
// skipped rather than failing the turn.
func (iv *Invoker) GatherContext(ctx context.Context, userInput string) (string, error) {
	enabled := iv.registry.Enabled()
	if len(enabled) == 0 {
		return "", nil
	}

	relevant := iv.relevantPlugins(ctx, userInput, enabled)
	if len(relevant) == 0 {
		return "", nil
	}

	var parts []string
	for _, p := range relevant {
		res, err := p.Invoke(ctx, Context{UserInput: userInput})
		if err != nil {
			log.WithError(err).WithField("tool_id", p.ToolID()).Warn("plugin invoke failed, skipping")
			continue
		}
		if res.Context == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", p.Name(), res.Context))
	}
	return strings.Join(parts, "\n"), nil
}

func (iv *Invoker) relevantPlugins(ctx context.Context, userInput string, enabled []Plugin) []Plugin {
	if iv.router != nil && iv.router.HasTier(llm.TierTool) {
		ids, err := iv.judgeRelevanceWithLLM(ctx, userInput, enabled)
		if err == nil {
			return selectByIDs(enabled, ids)
		}
		log.WithError(err).Debug("relevance classifier failed, falling back to keyword match")
	}
	return fallbackKeywordMatch(userInput, enabled)
}

func (iv *Invoker) judgeRelevanceWithLLM(ctx context.Context, userInput string, tools []Plugin) ([]string, error) {
	var desc strings.Builder
	for i, t := range tools {
		fmt.Fprintf(&desc, "%d. %s: %s - %s\n", i+1, t.ToolID(), t.Name(), t.Description())
	}

	text, err := iv.router.Chat(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(relevancePrompt, desc.String(), userInput)},
	}, llm.TierTool)
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(text)
	if reply == "" || reply == "无" || strings.EqualFold(reply, "none") {
		return nil, nil
	}

	idByToolID := make(map[string]string, len(tools))
	idByIndex := make(map[string]string, len(tools))
	for i, t := range tools {
		idByToolID[strings.ToLower(t.ToolID())] = t.ToolID()
		idByIndex[strconv.Itoa(i+1)] = t.ToolID()
	}

	reply = strings.ReplaceAll(reply, "，", ",")
	var ids []string
	for _, part := range strings.Split(reply, ",") {
		part = strings.TrimSpace(part)
		if id, ok := idByToolID[strings.ToLower(part)]; ok {
			ids = append(ids, id)
		} else if id, ok := idByIndex[part]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func selectByIDs(tools []Plugin, ids []string) []Plugin {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Plugin
	for _, t := range tools {
		if want[t.ToolID()] {
			out = append(out, t)
		}
	}
	return out
}

func fallbackKeywordMatch(userInput string, tools []Plugin) []Plugin {
	lower := strings.ToLower(userInput)
	var out []Plugin
	for _, t := range tools {
		for _, kw := range t.Keywords() {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
