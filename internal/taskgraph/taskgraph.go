package taskgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/taskgraph/checkpoint"
)

var log = obs.For("taskgraph")

const maxParallelWorkers = 3

// Engine drives the dynamic multi-agent state machine:
// orchestrate -> (parallel|sequential)* -> synthesise.
type Engine struct {
	router       *llm.Router
	checkpointer checkpoint.Checkpointer
}

// New builds an Engine over router (Main tier for orchestration and
// synthesis, Tool tier for sub-agent execution) and checkpointer.
func New(router *llm.Router, cp checkpoint.Checkpointer) *Engine {
	return &Engine{router: router, checkpointer: cp}
}

// Run drives the state machine to completion for one task event,
// checkpointing at every node boundary so a crashed or paused run can
// resume from threadID via Resume.
func (e *Engine) Run(ctx context.Context, threadID string, event TaskEventView, characterContext string) (*Result, error) {
	state := newState(threadID, event, characterContext)
	return e.drive(ctx, state)
}

// Resume continues a previously checkpointed run from its last completed
// node boundary. Returns (nil, false, nil) if no checkpoint exists for
// threadID.
func (e *Engine) Resume(ctx context.Context, threadID string) (*Result, bool, error) {
	raw, found, err := e.checkpointer.Load(ctx, threadID)
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}
	if !found {
		return nil, false, nil
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, fmt.Errorf("unmarshal checkpoint %s: %w", threadID, err)
	}
	result, err := e.drive(ctx, &state)
	return result, true, err
}

// drive runs nodes until NextAction settles to "end", checkpointing the
// state after every node.
func (e *Engine) drive(ctx context.Context, state *State) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCancelled, err)
		}

		switch state.NextAction {
		case ActionOrchestrate:
			e.orchestrate(ctx, state)
		case ActionExecuteParallel:
			e.executeParallel(ctx, state)
		case ActionExecuteSequential:
			e.executeSequential(ctx, state)
		case ActionSynthesise:
			e.synthesise(ctx, state)
		case ActionEnd:
			return e.finalize(state), e.checkpoint(ctx, state)
		default:
			state.Error = fmt.Sprintf("unknown next_action %q", state.NextAction)
			state.NextAction = ActionEnd
		}

		if err := e.checkpoint(ctx, state); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) checkpoint(ctx context.Context, state *State) error {
	if e.checkpointer == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint state: %w", err)
	}
	if err := e.checkpointer.Save(ctx, state.ThreadID, raw); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (e *Engine) finalize(state *State) *Result {
	anySucceeded, anyFailed := false, false
	if state.Plan != nil {
		for _, a := range state.Plan.Agents {
			switch a.Status {
			case AgentCompleted:
				anySucceeded = true
			case AgentFailed:
				anyFailed = true
			}
		}
	}

	result := &Result{
		FinalResult:                  state.FinalResult,
		CollaborationLogs:            state.CollaborationLogs,
		RequiresDeliveryConfirmation: state.RequiresDeliveryConfirmation,
		Success:                      anySucceeded || (!anyFailed && state.FinalResult != ""),
		PartialSuccess:               anySucceeded && anyFailed,
	}

	switch {
	case state.ErrorKind == "deadlock":
		result.Error = fmt.Errorf("%w: %s", errs.ErrDependencyDeadlock, state.Error)
		result.Success = false
	case anyFailed && !anySucceeded:
		result.Error = fmt.Errorf("%w: every sub-agent failed", errs.ErrUpstream)
	case state.Error != "":
		result.Error = fmt.Errorf("%w: %s", errs.ErrUpstream, state.Error)
	}
	return result
}

// --- orchestrate ---

const orchestrationPrompt = `You are a task orchestration expert. Analyse the task and decide the best ` +
	`execution strategy.

Task:
- Title: %s
- Description: %s
- Requirements: %s
- Completion criteria: %s

Strategies:
- simple: the task is trivial, answer directly, no sub-agents needed.
- parallel: the task decomposes into independent sub-tasks sub-agents can run concurrently.
- sequential: the task must proceed in dependency order.

Respond with strict JSON only: {"complexity":"simple"|"medium"|"complex",` +
	`"execution_strategy":"simple"|"parallel"|"sequential","reasoning",` +
	`"agents":[{"agent_id","role","description","task","dependencies":[]}],"direct_result"}.`

func (e *Engine) orchestrate(ctx context.Context, state *State) {
	state.log("progress", fmt.Sprintf("orchestrating task %q", state.TaskEvent.Title))

	if e.router == nil || !e.router.HasTier(llm.TierMain) {
		state.Error = "no main-tier model configured for orchestration"
		state.ErrorKind = "upstream"
		state.NextAction = ActionEnd
		return
	}

	prompt := fmt.Sprintf(orchestrationPrompt, state.TaskEvent.Title, state.TaskEvent.Description,
		orDash(state.TaskEvent.TaskRequirements), orDash(state.TaskEvent.CompletionCriteria))

	text, err := e.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: "You are a professional task orchestration expert."},
		{Role: "user", Content: prompt},
	}, llm.TierMain)
	if err != nil {
		state.Error = fmt.Sprintf("orchestration call failed: %v", err)
		state.ErrorKind = "upstream"
		state.NextAction = ActionEnd
		return
	}

	var plan OrchestrationPlan
	if err := jsonutil.StrictUnmarshal(text, &plan); err != nil {
		state.Error = fmt.Sprintf("orchestration response unparsable: %v", err)
		state.ErrorKind = "upstream"
		state.NextAction = ActionEnd
		return
	}
	for i := range plan.Agents {
		plan.Agents[i].Status = AgentPending
		if plan.Agents[i].Dependencies == nil {
			plan.Agents[i].Dependencies = []string{}
		}
	}
	state.Plan = &plan

	switch plan.ExecutionStrategy {
	case StrategyParallel:
		state.NextAction = ActionExecuteParallel
		state.log("progress", fmt.Sprintf("plan: parallel strategy, %d agents", len(plan.Agents)))
	case StrategySequential:
		state.NextAction = ActionExecuteSequential
		state.log("progress", fmt.Sprintf("plan: sequential strategy, %d steps", len(plan.Agents)))
	default:
		state.NextAction = ActionEnd
		state.FinalResult = plan.DirectResult
		state.RequiresDeliveryConfirmation = true
	}
}

func orDash(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// --- execute_parallel ---

func (e *Engine) executeParallel(ctx context.Context, state *State) {
	pendingIdx := pendingIndices(state.Plan.Agents)
	if len(pendingIdx) == 0 {
		state.NextAction = ActionSynthesise
		return
	}

	state.log("progress", fmt.Sprintf("executing %d agents in parallel", len(pendingIdx)))

	workers := len(pendingIdx)
	if workers > maxParallelWorkers {
		workers = maxParallelWorkers
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, idx := range pendingIdx {
		idx := idx
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			agent := state.Plan.Agents[idx]
			deps := dependencyResults(state, agent.Dependencies)
			result, execErr := e.executeAgent(ctx, agent, state, deps)

			mu.Lock()
			defer mu.Unlock()
			applyAgentResult(state, idx, result, execErr)
		}()
	}
	wg.Wait()

	remaining := pendingIndices(state.Plan.Agents)
	if len(remaining) > 0 {
		state.NextAction = ActionExecuteParallel
	} else {
		state.NextAction = ActionSynthesise
	}
}

// --- execute_sequential ---

func (e *Engine) executeSequential(ctx context.Context, state *State) {
	pendingIdx := pendingIndices(state.Plan.Agents)
	if len(pendingIdx) == 0 {
		state.NextAction = ActionSynthesise
		return
	}

	runnable := -1
	for _, idx := range pendingIdx {
		if dependenciesSatisfied(state, state.Plan.Agents[idx].Dependencies) {
			runnable = idx
			break
		}
	}
	if runnable < 0 {
		state.Error = "no pending agent has all dependencies satisfied"
		state.ErrorKind = "deadlock"
		state.NextAction = ActionEnd
		return
	}

	agent := state.Plan.Agents[runnable]
	state.log("progress", fmt.Sprintf("executing agent [%s]", agent.Role))
	deps := dependencyResults(state, agent.Dependencies)
	result, execErr := e.executeAgent(ctx, agent, state, deps)
	applyAgentResult(state, runnable, result, execErr)

	remaining := pendingIndices(state.Plan.Agents)
	if len(remaining) > 0 {
		state.NextAction = ActionExecuteSequential
	} else {
		state.NextAction = ActionSynthesise
	}
}

func applyAgentResult(state *State, idx int, result string, execErr error) {
	agent := &state.Plan.Agents[idx]
	if execErr != nil {
		agent.Status = AgentFailed
		agent.Error = execErr.Error()
		state.AgentResults[agent.AgentID] = fmt.Sprintf("failed: %v", execErr)
		state.log("agent_failed", fmt.Sprintf("agent [%s] failed: %v", agent.Role, execErr))
		return
	}
	agent.Status = AgentCompleted
	agent.Result = result
	state.AgentResults[agent.AgentID] = result
	state.log("agent_completed", fmt.Sprintf("agent [%s] completed", agent.Role))
}

func pendingIndices(agents []AgentRecord) []int {
	var out []int
	for i, a := range agents {
		if a.Status == AgentPending {
			out = append(out, i)
		}
	}
	return out
}

func dependenciesSatisfied(state *State, deps []string) bool {
	for _, dep := range deps {
		if _, ok := state.AgentResults[dep]; !ok {
			return false
		}
	}
	return true
}

func dependencyResults(state *State, deps []string) map[string]string {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]string, len(deps))
	for _, dep := range deps {
		if r, ok := state.AgentResults[dep]; ok {
			out[dep] = r
		}
	}
	return out
}

// --- sub-agent execution ---

const subAgentPromptTpl = `You are playing the role of "%s": %s.

Your task: %s
%s
Carry out the task and respond with your result as plain text.`

// executeAgent invokes the Tool tier with a role/description/task
// prompt plus any dependency results. The engine does not parse the
// returned text structurally; synthesis does.
func (e *Engine) executeAgent(ctx context.Context, agent AgentRecord, state *State, deps map[string]string) (string, error) {
	if e.router == nil || !e.router.HasTier(llm.TierTool) {
		return "", fmt.Errorf("%w: no tool-tier model configured for sub-agent execution", errs.ErrUpstream)
	}

	depBlock := ""
	if len(deps) > 0 {
		depBlock = "\nResults from dependent tasks:\n"
		for id, r := range deps {
			depBlock += fmt.Sprintf("- %s: %s\n", id, r)
		}
	}

	prompt := fmt.Sprintf(subAgentPromptTpl, agent.Role, agent.Description, agent.Task, depBlock)
	text, err := e.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Context: " + state.TaskEvent.Title + ". " + state.CharacterContext},
		{Role: "user", Content: prompt},
	}, llm.TierTool)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	return text, nil
}

// --- synthesise ---

const synthesisPrompt = `Combine the following sub-agent results into one coherent answer to the ` +
	`original task "%s". Respond in plain text, not JSON.

%s`

func (e *Engine) synthesise(ctx context.Context, state *State) {
	state.log("progress", "synthesising sub-agent results")

	var transcript string
	for _, a := range state.Plan.Agents {
		if a.Status != AgentCompleted {
			continue
		}
		transcript += fmt.Sprintf("[%s]\n%s\n\n", a.Role, a.Result)
	}

	if e.router != nil && e.router.HasTier(llm.TierMain) && transcript != "" {
		text, err := e.router.Chat(ctx, []llm.Message{
			{Role: "system", Content: "You synthesise multi-agent collaboration results into one answer."},
			{Role: "user", Content: fmt.Sprintf(synthesisPrompt, state.TaskEvent.Title, transcript)},
		}, llm.TierMain)
		if err == nil {
			state.FinalResult = text
			state.NextAction = ActionEnd
			return
		}
		log.WithError(err).Warn("synthesis call failed, falling back to verbatim concatenation")
	}

	state.FinalResult = concatenateVerbatim(state.Plan.Agents)
	state.NextAction = ActionEnd
}

func concatenateVerbatim(agents []AgentRecord) string {
	var out string
	for _, a := range agents {
		if a.Status != AgentCompleted {
			continue
		}
		out += fmt.Sprintf("## %s\n%s\n\n", a.Role, a.Result)
	}
	return out
}
