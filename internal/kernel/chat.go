package kernel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/hedaas-code/neoagent/internal/environment"
	"github.com/hedaas-code/neoagent/internal/intent"
	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/schedule"
	"github.com/hedaas-code/neoagent/internal/store"
)

const recentMessageWindow = 10

// Chat runs the per-turn pipeline: understand, vision, schedule,
// plugins, append, compose, generate, append, return.
func (k *Kernel) Chat(ctx context.Context, userInput string) (string, error) {
	// 1. Understand: relevant knowledge + environment-switch intent.
	retrieval, err := k.graph.Retrieve(ctx, userInput, 0)
	if err != nil {
		log.WithError(err).Warn("knowledge retrieval failed, continuing without it")
		retrieval = &graph.RetrieveResult{}
	}

	switchMsg := k.applySwitchIntent(ctx, userInput)

	// 2. Vision: gated by perception keywords.
	var visionBlock string
	if environment.HasPerceptionIntent(userInput) {
		highPrecision := intent.QueryPrecision(ctx, k.router, userInput)
		vc, err := k.env.VisionContext(ctx, highPrecision)
		if err != nil {
			log.WithError(err).Warn("vision context failed, continuing without it")
		} else if vc.Environment != "" {
			visionBlock = fmt.Sprintf("environment: %s (objects noted: %d)\n%s", vc.Environment, vc.ObjectCount, vc.Narration)
		}
	}

	// 3. Schedule: pending confirmation, then intent classification.
	scheduleActionMsg := k.resolvePendingCollaboration(ctx, userInput)
	scheduleContext := k.handleScheduleIntent(ctx, userInput)

	// 4. Plugins: gather context from relevant registered tools.
	pluginBlock, err := k.plugins.GatherContext(ctx, userInput)
	if err != nil {
		log.WithError(err).Warn("plugin context gathering failed, continuing without it")
	}

	// 5. Append user message to LayeredMemory; this also fires the
	// knowledge-extraction round-counter trigger internally.
	if err := k.memory.AddMessage(ctx, store.RoleUser, userInput); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	totalTurns, err := k.memory.TotalUserTurns(ctx)
	if err != nil {
		log.WithError(err).Warn("reading total user turns failed, skipping round-triggered background work")
	} else {
		k.runRoundTriggeredWork(ctx, totalTurns)
	}

	// 6. Compose prompt.
	systemMessages, err := k.composeSystemMessages(ctx, retrieval, visionBlock, scheduleContext, scheduleActionMsg, pluginBlock, switchMsg)
	if err != nil {
		return "", fmt.Errorf("compose prompt: %w", err)
	}

	history, err := k.recentHistoryMessages(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch recent history: %w", err)
	}

	// 7. Generate. A hard upstream failure still yields a reply; the
	// user message above stays in memory either way.
	reply, err := k.router.Chat(ctx, append(systemMessages, history...), llm.TierMain)
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.ErrCancelled
		}
		log.WithError(err).Warn("reply generation failed")
		return fmt.Sprintf("sorry, I can't answer right now (%v)", err), nil
	}

	// 8. Append assistant message.
	if err := k.memory.AddMessage(ctx, store.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("append assistant message: %w", err)
	}

	// 9. Return.
	return reply, nil
}

// applySwitchIntent detects and, if confident, executes an
// environment-switch intent, returning a note for the prompt's
// schedule/environment context when a switch actually happened.
func (k *Kernel) applySwitchIntent(ctx context.Context, userInput string) string {
	switchIntent, err := k.env.DetectSwitchIntent(ctx, userInput)
	if err != nil {
		log.WithError(err).Debug("switch intent detection failed, continuing without it")
		return ""
	}
	if switchIntent == nil || !switchIntent.CanSwitch || switchIntent.ToEnv == "" {
		return ""
	}

	envs, err := k.store.ListEnvironments(ctx)
	if err != nil {
		log.WithError(err).Warn("listing environments failed, cannot resolve switch target")
		return ""
	}
	var targetUUID string
	for _, e := range envs {
		if e.Name == switchIntent.ToEnv {
			targetUUID = e.UUID
			break
		}
	}
	if targetUUID == "" {
		return ""
	}

	if err := k.env.Switch(ctx, targetUUID); err != nil {
		log.WithError(err).Warn("environment switch failed")
		return ""
	}
	if err := k.memory.AddMessage(ctx, store.RoleSystem, fmt.Sprintf("moved from %s to %s", switchIntent.FromEnv, switchIntent.ToEnv)); err != nil {
		log.WithError(err).Debug("failed to log environment switch to memory")
	}
	return fmt.Sprintf("moved from %s to %s", switchIntent.FromEnv, switchIntent.ToEnv)
}

// resolvePendingCollaboration applies a user's yes/no reply to the most
// recently created pending collaboration schedule, if userInput reads as
// a confirmation response at all.
func (k *Kernel) resolvePendingCollaboration(ctx context.Context, userInput string) string {
	if !intent.IsConfirmationResponse(userInput) {
		return ""
	}
	pending, err := k.store.PendingCollaborationSchedules(ctx)
	if err != nil {
		log.WithError(err).Warn("listing pending collaboration schedules failed")
		return ""
	}
	if len(pending) == 0 {
		return ""
	}

	last := pending[0]
	accept := intent.IsPositiveConfirmation(userInput)
	if err := k.schedules.ConfirmCollaboration(ctx, last.ScheduleID, accept); err != nil {
		log.WithError(err).Warn("confirming collaboration schedule failed")
		return ""
	}
	if accept {
		return fmt.Sprintf("confirmed schedule: %s", last.Title)
	}
	return fmt.Sprintf("cancelled schedule: %s", last.Title)
}

// handleScheduleIntent classifies schedule intent and, for an
// appointment, creates it (checking conflicts); for a query, ensures the
// day has at least one temporary schedule before answering. Returns the
// schedule context block for the prompt, or empty if no intent fired.
func (k *Kernel) handleScheduleIntent(ctx context.Context, userInput string) string {
	if !intent.HasScheduleKeywords(userInput) {
		return ""
	}
	now := time.Now()
	si := intent.DetectScheduleIntent(ctx, k.router, userInput, k.characterName, now)
	if si == nil || !si.HasScheduleIntent {
		return ""
	}

	switch si.ScheduleType {
	case intent.ScheduleTypeAppointment:
		return k.createAppointmentFromIntent(ctx, si)
	case intent.ScheduleTypeQuery:
		return k.answerScheduleQuery(ctx, si, now)
	default:
		return ""
	}
}

func (k *Kernel) createAppointmentFromIntent(ctx context.Context, si *intent.ScheduleIntent) string {
	if si.StartTime == nil || si.EndTime == nil {
		return ""
	}
	title := si.Title
	if title == "" {
		title = "unnamed appointment"
	}
	s := &store.Schedule{
		Title:        title,
		Description:  si.Description,
		Kind:         store.ScheduleAppointment,
		StartTime:    *si.StartTime,
		EndTime:      *si.EndTime,
		Priority:     store.PriorityMedium,
		Source:       "intent",
		InvolvesUser: si.InvolvesUser,
	}
	res, err := k.schedules.Create(ctx, s, schedule.CreateOptions{CheckConflict: true})
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return fmt.Sprintf("could not create %q: conflicts with an existing schedule", title)
		}
		log.WithError(err).Warn("schedule creation failed")
		return ""
	}
	return fmt.Sprintf("agreed to schedule %q from %s to %s", res.Schedule.Title,
		res.Schedule.StartTime.Format(time.RFC3339), res.Schedule.EndTime.Format(time.RFC3339))
}

func (k *Kernel) answerScheduleQuery(ctx context.Context, si *intent.ScheduleIntent, now time.Time) string {
	queryDate := now
	if si.StartTime != nil {
		queryDate = *si.StartTime
	}

	k.ensureTemporarySchedules(ctx, queryDate)

	dayStart := time.Date(queryDate.Year(), queryDate.Month(), queryDate.Day(), 0, 0, 0, 0, queryDate.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	schedules, err := k.schedules.InRange(ctx, dayStart, dayEnd)
	if err != nil {
		log.WithError(err).Warn("schedule query failed")
		return ""
	}
	if len(schedules) == 0 {
		return fmt.Sprintf("no particular plans on %s, fairly free", dayStart.Format("2006-01-02"))
	}

	var lines []string
	for _, s := range schedules {
		lines = append(lines, fmt.Sprintf("%s - %s", s.StartTime.Format("15:04"), s.Title))
	}
	return fmt.Sprintf("plans on %s:\n%s", dayStart.Format("2006-01-02"), strings.Join(lines, "\n"))
}

// ensureTemporarySchedules generates and persists 1-3 temporary
// schedules for date if none exist yet, so a schedule query always finds
// at least a plausible day plan.
func (k *Kernel) ensureTemporarySchedules(ctx context.Context, date time.Time) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	existing, err := k.schedules.InRange(ctx, dayStart, dayEnd)
	if err != nil {
		log.WithError(err).Debug("checking existing schedules failed, skipping temporary generation")
		return
	}
	for _, s := range existing {
		if s.Kind == store.ScheduleTemporary {
			return
		}
	}

	characterContext := k.world.CharacterProfile()
	generated, err := k.schedules.GenerateTemporary(ctx, date, characterContext)
	if err != nil {
		log.WithError(err).Debug("temporary schedule generation failed")
		return
	}
	for _, s := range generated {
		if _, err := k.schedules.Create(ctx, s, schedule.CreateOptions{}); err != nil {
			log.WithField("title", s.Title).WithError(err).Debug("persisting generated temporary schedule failed")
		}
	}
}

// runRoundTriggeredWork fires emotion analysis and expression-style
// learning when their respective round counters are due, completing
// synchronously so no later turn starts before this turn's writes are
// visible.
func (k *Kernel) runRoundTriggeredWork(ctx context.Context, totalUserTurns int) {
	if should, err := k.emotion.ShouldAnalyze(ctx, totalUserTurns); err != nil {
		log.WithError(err).Debug("checking emotion analysis trigger failed")
	} else if should {
		if _, err := k.emotion.Analyze(ctx, totalUserTurns, k.world.CharacterProfile()); err != nil {
			log.WithError(err).Warn("emotion analysis failed")
		}
	}

	if should, err := k.memory.ShouldLearnExpressions(ctx, totalUserTurns, 0); err != nil {
		log.WithError(err).Debug("checking expression learning trigger failed")
	} else if should {
		if err := k.memory.LearnExpressions(ctx, totalUserTurns); err != nil {
			log.WithError(err).Warn("expression learning failed")
		}
	}
}

func (k *Kernel) recentHistoryMessages(ctx context.Context) ([]llm.Message, error) {
	recent, err := k.store.RecentMessages(ctx, k.conversationID, recentMessageWindow)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, 0, len(recent))
	for _, m := range recent {
		out = append(out, llm.Message{Role: roleToLLM(m.Role), Content: m.Content})
	}
	return out, nil
}

func roleToLLM(r store.Role) schema.RoleType {
	switch r {
	case store.RoleAssistant:
		return schema.Assistant
	case store.RoleSystem:
		return schema.System
	default:
		return schema.User
	}
}
