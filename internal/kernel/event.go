package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/store"
	"github.com/hedaas-code/neoagent/internal/taskgraph"
)

const (
	metadataTaskRequirements   = "task_requirements"
	metadataCompletionCriteria = "completion_criteria"
)

// notificationExplainPrompt is the fixed "understand and explain"
// template for notification events: a single Main-tier call, no
// classifier, no retry.
const notificationExplainPrompt = `An event notification has arrived. Understand it in character and ` +
	`explain its significance briefly, the way you would mention it in conversation.`

// EventResult is HandleEvent's return shape. The task path's "simple"
// strategy can finish with a result still awaiting the host's own
// delivery confirmation: the host, not the kernel, decides when that
// result is truly final, so the flag is surfaced here instead of the
// kernel silently marking the event completed.
type EventResult struct {
	Reply                        string
	RequiresDeliveryConfirmation bool
}

// HandleEvent dispatches an externally created Event by kind: a
// notification gets a single Main-tier explanation call; a task is
// handed to the TaskGraph engine. Status transitions pending -> processing
// -> completed|failed happen around the dispatch, except when the task
// path reports RequiresDeliveryConfirmation, in which case status is left
// at processing for the host to finalize via MarkEventCompleted.
func (k *Kernel) HandleEvent(ctx context.Context, eventID string) (*EventResult, error) {
	event, err := k.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	if err := k.store.UpdateEventStatus(ctx, eventID, store.EventProcessing); err != nil {
		return nil, fmt.Errorf("mark event %s processing: %w", eventID, err)
	}

	var result *EventResult
	switch event.Kind {
	case store.EventNotification:
		result, err = k.handleNotification(ctx, event)
	case store.EventTask:
		result, err = k.handleTask(ctx, event)
	default:
		err = fmt.Errorf("unknown event kind %q", event.Kind)
	}

	if err != nil {
		_ = k.store.AppendEventLog(ctx, eventID, store.EventLog{Timestamp: time.Now().UTC(), Action: "handle", Content: err.Error()})
		_ = k.store.UpdateEventStatus(ctx, eventID, store.EventFailed)
		return nil, fmt.Errorf("handle event %s: %w", eventID, err)
	}

	_ = k.store.AppendEventLog(ctx, eventID, store.EventLog{Timestamp: time.Now().UTC(), Action: "handle", Content: result.Reply})
	if result.RequiresDeliveryConfirmation {
		log.WithField("event_id", eventID).Debug("task result awaits host delivery confirmation, leaving status at processing")
		return result, nil
	}
	if err := k.store.UpdateEventStatus(ctx, eventID, store.EventCompleted); err != nil {
		return nil, fmt.Errorf("mark event %s completed: %w", eventID, err)
	}
	return result, nil
}

// MarkEventCompleted finalizes an event whose task result required
// delivery confirmation, once the host has confirmed it. Calling this
// for an event that never requested confirmation is a harmless no-op
// status transition.
func (k *Kernel) MarkEventCompleted(ctx context.Context, eventID string) error {
	if err := k.store.UpdateEventStatus(ctx, eventID, store.EventCompleted); err != nil {
		return fmt.Errorf("mark event %s completed: %w", eventID, err)
	}
	return nil
}

func (k *Kernel) handleNotification(ctx context.Context, event *store.Event) (*EventResult, error) {
	text, err := k.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: notificationExplainPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n%s", event.Title, event.Description)},
	}, llm.TierMain)
	if err != nil {
		return nil, fmt.Errorf("notification explain call: %w", err)
	}
	if err := k.memory.AddMessage(ctx, store.RoleAssistant, text); err != nil {
		log.WithError(err).Warn("failed to record notification reply in memory")
	}
	return &EventResult{Reply: text}, nil
}

func (k *Kernel) handleTask(ctx context.Context, event *store.Event) (*EventResult, error) {
	view := taskgraph.TaskEventView{
		EventID:            event.EventID,
		Title:              event.Title,
		Description:        event.Description,
		TaskRequirements:   event.Metadata[metadataTaskRequirements],
		CompletionCriteria: event.Metadata[metadataCompletionCriteria],
	}

	result, err := k.tasks.Run(ctx, event.EventID, view, k.world.CharacterProfile())
	if err != nil {
		return nil, fmt.Errorf("run task graph: %w", err)
	}
	if result.Error != nil {
		return nil, result.Error
	}

	if err := k.memory.AddMessage(ctx, store.RoleAssistant, result.FinalResult); err != nil {
		log.WithError(err).Warn("failed to record task result in memory")
	}

	return &EventResult{
		Reply:                        result.FinalResult,
		RequiresDeliveryConfirmation: result.RequiresDeliveryConfirmation,
	}, nil
}
