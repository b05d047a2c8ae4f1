// Package kernel implements the agent kernel: the per-turn pipeline
// tying memory, knowledge, intent recognition, schedules, plugins, and
// the task graph engine into a single Chat/HandleEvent surface.
package kernel

import (
	"github.com/hedaas-code/neoagent/internal/emotion"
	"github.com/hedaas-code/neoagent/internal/environment"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/memory"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/plugin"
	"github.com/hedaas-code/neoagent/internal/prompt"
	"github.com/hedaas-code/neoagent/internal/schedule"
	"github.com/hedaas-code/neoagent/internal/store"
	"github.com/hedaas-code/neoagent/internal/taskgraph"
	"github.com/hedaas-code/neoagent/internal/worldview"
)

var log = obs.For("kernel")

// DefaultConversationID is the single persistent identity's conversation
// scope; the system models one agent talking to one user, not
// multi-tenant sessions. Exported so callers (internal/neoagentctl) can
// construct the memory and emotion facades over the same conversation
// scope the Kernel uses.
const DefaultConversationID = "default"

// Kernel is the AgentKernel facade, composing every other component.
type Kernel struct {
	store  store.Store
	router *llm.Router

	characterName string

	knowledge *base.Knowledge
	graph     *graph.Graph
	memory    *memory.Memory
	emotion   *emotion.Analyzer
	env       *environment.Model
	schedules *schedule.Engine
	plugins   *plugin.Invoker
	prompts   *prompt.Library
	world     *worldview.Worldview
	tasks     *taskgraph.Engine

	conversationID string
}

// Dependencies bundles every constructed component New assembles a
// Kernel from. A thin struct keeps the constructor's parameter list
// from growing unreadable as components are added.
type Dependencies struct {
	Store         store.Store
	Router        *llm.Router
	CharacterName string

	Knowledge *base.Knowledge
	Graph     *graph.Graph
	Memory    *memory.Memory
	Emotion   *emotion.Analyzer
	Env       *environment.Model
	Schedules *schedule.Engine
	Plugins   *plugin.Invoker
	Prompts   *prompt.Library
	World     *worldview.Worldview
	Tasks     *taskgraph.Engine
}

// New builds a Kernel from fully constructed dependencies. Callers
// (internal/neoagentctl) are responsible for wiring each component's own
// constructor from config; New only assembles the whole.
func New(d Dependencies) *Kernel {
	return &Kernel{
		store:          d.Store,
		router:         d.Router,
		characterName:  d.CharacterName,
		knowledge:      d.Knowledge,
		graph:          d.Graph,
		memory:         d.Memory,
		emotion:        d.Emotion,
		env:            d.Env,
		schedules:      d.Schedules,
		plugins:        d.Plugins,
		prompts:        d.Prompts,
		world:          d.World,
		tasks:          d.Tasks,
		conversationID: DefaultConversationID,
	}
}
