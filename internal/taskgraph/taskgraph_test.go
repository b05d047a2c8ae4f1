package taskgraph

import (
	"context"
	"errors"
	"strings"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/taskgraph/checkpoint"
)

// fakeChatModel is a deterministic einoModel.BaseChatModel stand-in:
// Generate inspects the rendered prompt and returns a canned reply, or
// an error when the prompt names one of failRoles.
type fakeChatModel struct {
	failRoles map[string]bool
	reply     func(messages []*schema.Message) string
}

func (f *fakeChatModel) Generate(_ context.Context, messages []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	for role := range f.failRoles {
		for _, m := range messages {
			if strings.Contains(m.Content, role) {
				return nil, errors.New("simulated upstream failure for " + role)
			}
		}
	}
	if f.reply != nil {
		return &schema.Message{Role: schema.Assistant, Content: f.reply(messages)}, nil
	}
	return &schema.Message{Role: schema.Assistant, Content: "ok"}, nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported by fakeChatModel")
}

var _ einoModel.BaseChatModel = (*fakeChatModel)(nil)

func testAgents() []AgentRecord {
	return []AgentRecord{
		{AgentID: "a1", Role: "Researcher A", Status: AgentPending, Dependencies: []string{}},
		{AgentID: "a2", Role: "Researcher B", Status: AgentPending, Dependencies: []string{}},
		{AgentID: "a3", Role: "Researcher C (fails)", Status: AgentPending, Dependencies: []string{}},
	}
}

func TestExecuteParallelToleratesOneFailureAndSynthesisesPartialSuccess(t *testing.T) {
	toolModel := &fakeChatModel{failRoles: map[string]bool{"Researcher C": true}}
	mainModel := &fakeChatModel{reply: func(messages []*schema.Message) string { return "synthesised answer" }}
	router := llm.NewRouter(map[llm.Tier]einoModel.BaseChatModel{
		llm.TierTool: toolModel,
		llm.TierMain: mainModel,
	})

	eng := New(router, checkpoint.NewMemoryStore())
	state := newState("thread-1", TaskEventView{Title: "t"}, "character")
	state.Plan = &OrchestrationPlan{ExecutionStrategy: StrategyParallel, Agents: testAgents()}
	state.NextAction = ActionExecuteParallel

	result, err := eng.drive(context.Background(), state)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.PartialSuccess)
	require.Equal(t, "synthesised answer", result.FinalResult)

	var failedCount int
	for _, a := range state.Plan.Agents {
		if a.Status == AgentFailed {
			failedCount++
		}
	}
	require.Equal(t, 1, failedCount)
}

func TestExecuteParallelAllFailedIsFailure(t *testing.T) {
	toolModel := &fakeChatModel{failRoles: map[string]bool{"Researcher": true}}
	router := llm.NewRouter(map[llm.Tier]einoModel.BaseChatModel{llm.TierTool: toolModel})

	eng := New(router, checkpoint.NewMemoryStore())
	state := newState("thread-2", TaskEventView{Title: "t"}, "character")
	state.Plan = &OrchestrationPlan{ExecutionStrategy: StrategyParallel, Agents: testAgents()}
	state.NextAction = ActionExecuteParallel

	result, err := eng.drive(context.Background(), state)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Error(t, result.Error)
}

func TestExecuteSequentialDeadlockNeverInvokesSubAgent(t *testing.T) {
	invoked := false
	toolModel := &fakeChatModel{reply: func(messages []*schema.Message) string { invoked = true; return "x" }}
	router := llm.NewRouter(map[llm.Tier]einoModel.BaseChatModel{llm.TierTool: toolModel})

	eng := New(router, checkpoint.NewMemoryStore())
	state := newState("thread-3", TaskEventView{Title: "t"}, "character")
	state.Plan = &OrchestrationPlan{
		ExecutionStrategy: StrategySequential,
		Agents: []AgentRecord{
			{AgentID: "a1", Role: "First", Status: AgentPending, Dependencies: []string{"a2"}},
			{AgentID: "a2", Role: "Second", Status: AgentPending, Dependencies: []string{"a1"}},
		},
	}
	state.NextAction = ActionExecuteSequential

	result, err := eng.drive(context.Background(), state)
	require.NoError(t, err)
	require.False(t, invoked)
	require.False(t, result.Success)
	require.True(t, errors.Is(result.Error, errs.ErrDependencyDeadlock))
}

func TestExecuteSequentialVisitsTopologicalOrder(t *testing.T) {
	var order []string
	toolModel := &fakeChatModel{reply: func(messages []*schema.Message) string {
		last := messages[len(messages)-1].Content
		switch {
		case strings.Contains(last, "Second"):
			order = append(order, "a2")
		case strings.Contains(last, "First"):
			order = append(order, "a1")
		}
		return "done"
	}}
	router := llm.NewRouter(map[llm.Tier]einoModel.BaseChatModel{llm.TierTool: toolModel})

	eng := New(router, checkpoint.NewMemoryStore())
	state := newState("thread-4", TaskEventView{Title: "t"}, "character")
	state.Plan = &OrchestrationPlan{
		ExecutionStrategy: StrategySequential,
		Agents: []AgentRecord{
			{AgentID: "a2", Role: "Second", Status: AgentPending, Dependencies: []string{"a1"}},
			{AgentID: "a1", Role: "First", Status: AgentPending, Dependencies: []string{}},
		},
	}
	state.NextAction = ActionExecuteSequential

	result, err := eng.drive(context.Background(), state)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, []string{"a1", "a2"}, order)
}

func TestOrchestrateNoMainTierDegradesToUpstreamError(t *testing.T) {
	eng := New(llm.NewRouter(nil), checkpoint.NewMemoryStore())
	result, err := eng.Run(context.Background(), "thread-5", TaskEventView{Title: "t"}, "character")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Error(t, result.Error)
}

func TestCheckpointRoundTripResumesRun(t *testing.T) {
	cp := checkpoint.NewMemoryStore()
	eng := New(llm.NewRouter(nil), cp)
	ctx := context.Background()

	_, err := eng.Run(ctx, "thread-6", TaskEventView{Title: "t"}, "character")
	require.NoError(t, err)

	raw, found, err := cp.Load(ctx, "thread-6")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, raw)
}
