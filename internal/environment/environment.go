// Package environment models the agent's places: a single active
// environment with a transactional switch, a Tool-tier switch-intent
// classifier, and a precision-gated vision context.
package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("environment")

// perceptionKeywords gate VisionContext: the turn must mention
// perception before the model runs the precision classifier at all.
var perceptionKeywords = []string{
	"see", "look", "around", "here", "smell", "hear", "看", "这里", "周围", "闻", "听",
}

// Model is the EnvironmentModel facade.
type Model struct {
	store  store.Store
	router *llm.Router
}

// New builds a Model over store.
func New(s store.Store, router *llm.Router) *Model {
	return &Model{store: s, router: router}
}

// ActiveEnvironment returns the currently active environment, if any.
func (m *Model) ActiveEnvironment(ctx context.Context) (*store.Environment, error) {
	env, err := m.store.ActiveEnvironment(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch active environment: %w", err)
	}
	return env, nil
}

// Switch activates envUUID, enforcing the single-active invariant
// transactionally in the Store.
func (m *Model) Switch(ctx context.Context, envUUID string) error {
	if err := m.store.ActivateEnvironment(ctx, envUUID); err != nil {
		return fmt.Errorf("activate environment %s: %w", envUUID, err)
	}
	return nil
}

// SwitchIntent is the result of DetectSwitchIntent.
type SwitchIntent struct {
	FromEnv   string `json:"from_env"`
	ToEnv     string `json:"to_env"`
	CanSwitch bool   `json:"can_switch"`
}

const switchIntentPrompt = `Decide whether the user's message asks to move to a different place. ` +
	`Known places: %s. Respond with strict JSON only: ` +
	`{"from_env", "to_env", "can_switch"}. If no destination is named or recognised, can_switch must be false.`

// DetectSwitchIntent runs a Tool-tier classifier gated by a text match
// against known environment/domain names. Unparsable or unreachable
// responses degrade to {CanSwitch: false}, never failing the turn.
func (m *Model) DetectSwitchIntent(ctx context.Context, userInput string) (*SwitchIntent, error) {
	neutral := &SwitchIntent{}

	if m.router == nil || !m.router.HasTier(llm.TierTool) {
		return neutral, nil
	}

	envs, err := m.store.ListEnvironments(ctx)
	if err != nil {
		return neutral, fmt.Errorf("list environments: %w", err)
	}
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Name)
	}
	if len(names) == 0 {
		return neutral, nil
	}

	domains, err := m.store.ListDomains(ctx)
	if err != nil {
		return neutral, fmt.Errorf("list domains: %w", err)
	}
	candidates := append([]string{}, names...)
	for _, d := range domains {
		candidates = append(candidates, d.Name)
	}
	lower, mentioned := strings.ToLower(userInput), false
	for _, c := range candidates {
		mentioned = mentioned || (c != "" && strings.Contains(lower, strings.ToLower(c)))
	}
	if !mentioned {
		return neutral, nil
	}

	current, _ := m.ActiveEnvironment(ctx)
	fromName := ""
	if current != nil {
		fromName = current.Name
	}

	text, err := m.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: fmt.Sprintf(switchIntentPrompt, strings.Join(names, ", "))},
		{Role: "user", Content: userInput},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Debug("switch intent call failed, treating as no intent")
		return neutral, nil
	}

	var intent SwitchIntent
	if err := jsonutil.StrictUnmarshal(text, &intent); err != nil {
		log.WithError(err).Debug("switch intent response unparsable, treating as no intent")
		return neutral, nil
	}
	if intent.FromEnv == "" {
		intent.FromEnv = fromName
	}
	return &intent, nil
}

// VisionContext is the precision-gated response for perception queries.
type VisionContext struct {
	Environment string
	ObjectCount int
	Narration   string
}

// HasPerceptionIntent reports whether userInput mentions perception,
// the gate that decides whether VisionContext runs at all.
func HasPerceptionIntent(userInput string) bool {
	lower := strings.ToLower(userInput)
	for _, kw := range perceptionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// VisionContext produces environment- or domain-level narration for a
// perception query, choosing granularity via the caller-supplied
// precision classifier (internal/intent.QueryPrecision): high precision
// narrates the active environment's detail fields, low precision
// narrates at the domain level, falling back to the environment's
// overview when it belongs to no domain.
func (m *Model) VisionContext(ctx context.Context, highPrecision bool) (*VisionContext, error) {
	env, err := m.ActiveEnvironment(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return &VisionContext{}, nil
		}
		return nil, fmt.Errorf("fetch active environment: %w", err)
	}

	if !highPrecision {
		domains, derr := m.store.DomainsForEnvironment(ctx, env.UUID)
		if derr != nil {
			log.WithError(derr).Debug("domain lookup failed, narrating at environment level")
		} else if len(domains) > 0 {
			return &VisionContext{Environment: domains[0].Name, Narration: domains[0].Description}, nil
		}
		// environment belongs to no domain; environment level is the
		// coarsest answer available
		return &VisionContext{Environment: env.Name, Narration: env.OverallDescription}, nil
	}

	parts := []string{env.OverallDescription}
	if env.Atmosphere != "" {
		parts = append(parts, env.Atmosphere)
	}
	if env.Lighting != "" {
		parts = append(parts, env.Lighting)
	}
	if env.Sounds != "" {
		parts = append(parts, env.Sounds)
	}
	if env.Smells != "" {
		parts = append(parts, env.Smells)
	}
	return &VisionContext{
		Environment: env.Name,
		ObjectCount: len(parts) - 1,
		Narration:   strings.Join(parts, " "),
	}, nil
}
