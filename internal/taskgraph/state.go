// Package taskgraph implements the dynamic multi-agent state machine
// (orchestrate -> parallel|sequential -> synthesise) with per-thread
// checkpointing.
package taskgraph

import "time"

// AgentStatus is a sub-agent record's lifecycle state.
type AgentStatus string

const (
	AgentPending   AgentStatus = "pending"
	AgentRunning   AgentStatus = "running"
	AgentCompleted AgentStatus = "completed"
	AgentFailed    AgentStatus = "failed"
)

// ExecutionStrategy is the orchestrator's chosen execution shape.
type ExecutionStrategy string

const (
	StrategySimple     ExecutionStrategy = "simple"
	StrategyParallel   ExecutionStrategy = "parallel"
	StrategySequential ExecutionStrategy = "sequential"
)

// NextAction names the state machine's current edge.
type NextAction string

const (
	ActionOrchestrate       NextAction = "orchestrate"
	ActionExecuteParallel   NextAction = "execute_parallel"
	ActionExecuteSequential NextAction = "execute_sequential"
	ActionSynthesise        NextAction = "synthesise"
	ActionEnd               NextAction = "end"
)

// AgentRecord is one sub-agent's orchestration and execution record.
type AgentRecord struct {
	AgentID      string      `json:"agent_id"`
	Role         string      `json:"role"`
	Description  string      `json:"description"`
	Task         string      `json:"task"`
	Dependencies []string    `json:"dependencies"`
	Status       AgentStatus `json:"status"`
	Result       string      `json:"result"`
	Error        string      `json:"error"`
}

// OrchestrationPlan is the Main-tier orchestrator's output.
type OrchestrationPlan struct {
	Complexity       string            `json:"complexity"`
	ExecutionStrategy ExecutionStrategy `json:"execution_strategy"`
	Reasoning        string            `json:"reasoning"`
	Agents           []AgentRecord     `json:"agents"`
	DirectResult     string            `json:"direct_result"`
}

// CollaborationLog is one entry in the run's audit trail.
type CollaborationLog struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// TaskEventView is the subset of store.Event the engine consumes,
// decoupled from the store package so the engine doesn't need a live
// Store dependency to resume purely from a checkpoint.
type TaskEventView struct {
	EventID               string `json:"event_id"`
	Title                 string `json:"title"`
	Description           string `json:"description"`
	TaskRequirements      string `json:"task_requirements"`
	CompletionCriteria    string `json:"completion_criteria"`
}

// State is the full MultiAgentState carried across node boundaries and
// persisted by the checkpointer at each boundary.
type State struct {
	ThreadID         string            `json:"thread_id"`
	TaskEvent        TaskEventView     `json:"task_event"`
	CharacterContext string            `json:"character_context"`

	Plan *OrchestrationPlan `json:"orchestration_plan"`

	AgentResults      map[string]string  `json:"agent_results"`
	CollaborationLogs []CollaborationLog `json:"collaboration_logs"`

	FinalResult string `json:"final_result"`
	Error       string `json:"error"`
	// ErrorKind discriminates the sentinel Result.Error should wrap:
	// "deadlock" for ErrDependencyDeadlock, "upstream" for everything
	// else (orchestration/synthesis transport failures).
	ErrorKind string `json:"error_kind"`

	NextAction                   NextAction `json:"next_action"`
	RequiresDeliveryConfirmation bool       `json:"requires_delivery_confirmation"`
}

func newState(threadID string, event TaskEventView, characterContext string) *State {
	return &State{
		ThreadID:         threadID,
		TaskEvent:        event,
		CharacterContext: characterContext,
		AgentResults:     make(map[string]string),
		NextAction:       ActionOrchestrate,
	}
}

func (s *State) log(kind, message string) {
	s.CollaborationLogs = append(s.CollaborationLogs, CollaborationLog{
		Timestamp: time.Now().UTC(), Kind: kind, Message: message,
	})
}

// Result is Run's return shape: the synthesised (or direct) reply plus
// enough bookkeeping for the caller to decide status transitions.
type Result struct {
	FinalResult                  string
	Success                      bool
	PartialSuccess               bool
	RequiresDeliveryConfirmation bool
	CollaborationLogs            []CollaborationLog
	Error                        error
}
