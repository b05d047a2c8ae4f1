// Package schedule implements the schedule engine: three kinds of
// schedule with priority-driven conflict resolution, similarity
// deduplication, user-collaboration confirmation, and temporary-schedule
// generation from free slots.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("schedule")

// CreateOptions tunes CreateSchedule's validation/resolution passes.
type CreateOptions struct {
	CheckConflict   bool
	CheckSimilarity bool
}

// CreateResult reports what CreateSchedule actually did, since a
// conflict or similarity hit may resolve into a no-op or a substitution
// rather than a plain insert.
type CreateResult struct {
	Schedule *store.Schedule
	Replaced []string // schedule IDs soft-deleted to make room
}

// Config bounds the day window FreeSlots partitions. Zero values select
// the full 00:00..24:00 day.
type Config struct {
	DayWindowStartHour int
	DayWindowEndHour   int
}

func (c Config) withDefaults() Config {
	if c.DayWindowEndHour <= 0 || c.DayWindowEndHour > 24 {
		c.DayWindowEndHour = 24
	}
	if c.DayWindowStartHour < 0 || c.DayWindowStartHour >= c.DayWindowEndHour {
		c.DayWindowStartHour = 0
	}
	return c
}

// Engine is the schedule engine facade.
type Engine struct {
	store  store.Store
	router *llm.Router
	cfg    Config
}

// New builds an Engine over store with the full-day window.
func New(s store.Store, router *llm.Router) *Engine {
	return NewWithConfig(s, router, Config{})
}

// NewWithConfig builds an Engine with an explicit day window.
func NewWithConfig(s store.Store, router *llm.Router, cfg Config) *Engine {
	return &Engine{store: s, router: router, cfg: cfg.withDefaults()}
}

// Create validates, resolves conflicts and similarity, applies the
// collaboration defaults, and persists the schedule.
func (e *Engine) Create(ctx context.Context, s *store.Schedule, opts CreateOptions) (*CreateResult, error) {
	if !s.EndTime.After(s.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", errs.ErrBadInput)
	}
	if s.Kind == store.ScheduleRecurring && (s.Weekday == nil || *s.Weekday < 0 || *s.Weekday > 6) {
		return nil, fmt.Errorf("%w: recurring schedule requires weekday in 0..6", errs.ErrBadInput)
	}
	if s.ScheduleID == "" {
		s.ScheduleID = uuid.NewString()
	}
	if s.Created.IsZero() {
		s.Created = time.Now().UTC()
	}

	result := &CreateResult{}

	if opts.CheckConflict {
		replaced, err := e.resolveConflicts(ctx, s)
		if err != nil {
			return nil, err
		}
		result.Replaced = append(result.Replaced, replaced...)
	}

	if opts.CheckSimilarity && s.Kind != store.ScheduleRecurring {
		refuse, replaced, err := e.resolveSimilarity(ctx, s)
		if err != nil {
			log.WithError(err).Debug("similarity check unavailable, skipping")
		} else {
			if refuse {
				return nil, fmt.Errorf("%w: schedule too similar to an existing one", errs.ErrConflict)
			}
			result.Replaced = append(result.Replaced, replaced...)
		}
	}

	if s.InvolvesUser {
		s.CollaborationStatus = store.CollaborationPending
		s.IsQueryable = false
	} else {
		s.CollaborationStatus = store.CollaborationNone
		s.IsQueryable = true
	}
	s.IsActive = true

	if err := e.store.CreateSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	result.Schedule = s
	return result, nil
}

// resolveConflicts finds active schedules strictly overlapping s and
// either dismisses them (if s's priority strictly exceeds every
// conflict) or refuses creation with ErrConflict.
func (e *Engine) resolveConflicts(ctx context.Context, s *store.Schedule) ([]string, error) {
	overlapping, err := e.store.OverlappingSchedules(ctx, s.StartTime, s.EndTime)
	if err != nil {
		return nil, fmt.Errorf("find overlapping schedules: %w", err)
	}
	if len(overlapping) == 0 {
		return nil, nil
	}

	for _, conflict := range overlapping {
		if s.Priority <= conflict.Priority {
			return nil, fmt.Errorf("%w: conflicts with schedule %q at equal or higher priority", errs.ErrConflict, conflict.Title)
		}
	}

	var replaced []string
	for _, conflict := range overlapping {
		if err := e.store.SoftDeleteSchedule(ctx, conflict.ScheduleID); err != nil {
			return nil, fmt.Errorf("soft delete conflicting schedule %s: %w", conflict.ScheduleID, err)
		}
		replaced = append(replaced, conflict.ScheduleID)
	}
	return replaced, nil
}

type similarityVerdict struct {
	IsSimilar bool   `json:"is_similar"`
	Keep      string `json:"keep"`
}

const similarityPrompt = `Two schedule entries on the same day may describe the same real-world ` +
	`event. Decide if they are the same event. Respond with strict JSON only: ` +
	`{"is_similar": bool, "keep": "new"|"existing"|"none"}.`

// resolveSimilarity runs a pairwise similarity check against same-day
// peers. Returns (refuse, replacedIDs, err); err is non-nil only when the
// check itself could not be attempted (caller must skip, not fail).
func (e *Engine) resolveSimilarity(ctx context.Context, s *store.Schedule) (bool, []string, error) {
	if e.router == nil || !e.router.HasTier(llm.TierTool) {
		return false, nil, fmt.Errorf("no tool-tier model configured for similarity check")
	}

	peers, err := e.store.SameDaySchedules(ctx, s.StartTime)
	if err != nil {
		return false, nil, fmt.Errorf("fetch same-day schedules: %w", err)
	}

	var replaced []string
	for _, peer := range peers {
		verdict, err := e.compareSimilarity(ctx, s, peer)
		if err != nil {
			continue
		}
		if !verdict.IsSimilar {
			continue
		}
		switch verdict.Keep {
		case "existing":
			return true, nil, nil
		case "new":
			if err := e.store.SoftDeleteSchedule(ctx, peer.ScheduleID); err != nil {
				return false, nil, fmt.Errorf("soft delete superseded schedule %s: %w", peer.ScheduleID, err)
			}
			replaced = append(replaced, peer.ScheduleID)
		}
	}
	return false, replaced, nil
}

func (e *Engine) compareSimilarity(ctx context.Context, a, b *store.Schedule) (*similarityVerdict, error) {
	prompt := fmt.Sprintf("New: %s / %s\nExisting: %s / %s", a.Title, a.Description, b.Title, b.Description)
	text, err := e.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: similarityPrompt},
		{Role: "user", Content: prompt},
	}, llm.TierTool)
	if err != nil {
		return nil, err
	}
	var v similarityVerdict
	if err := jsonutil.StrictUnmarshal(text, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ConfirmCollaboration accepts or declines a pending user-involved
// schedule.
func (e *Engine) ConfirmCollaboration(ctx context.Context, id string, accept bool) error {
	s, err := e.store.GetSchedule(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch schedule %s: %w", id, err)
	}
	if accept {
		s.CollaborationStatus = store.CollaborationAccepted
		s.IsQueryable = true
	} else {
		s.CollaborationStatus = store.CollaborationDeclined
		s.IsActive = false
	}
	if err := e.store.UpdateSchedule(ctx, s); err != nil {
		return fmt.Errorf("update schedule %s: %w", id, err)
	}
	return nil
}

// InRange returns queryable, active schedules strictly overlapping
// [start,end).
func (e *Engine) InRange(ctx context.Context, start, end time.Time) ([]*store.Schedule, error) {
	out, err := e.store.InRange(ctx, start, end, store.ScheduleFilter{QueryableOnly: true, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("query schedules in range: %w", err)
	}
	return out, nil
}

// Slot is a free [start,end) window.
type Slot struct {
	Start time.Time
	End   time.Time
}

// FreeSlots partitions the day by its active, queryable schedules and
// returns the complement, trimmed to windows >= slotMinutes.
func (e *Engine) FreeSlots(ctx context.Context, date time.Time, slotMinutes int) ([]Slot, error) {
	busy, err := e.store.DayActiveQueryableSchedules(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch day schedules: %w", err)
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayStart := midnight.Add(time.Duration(e.cfg.DayWindowStartHour) * time.Hour)
	dayEnd := midnight.Add(time.Duration(e.cfg.DayWindowEndHour) * time.Hour)

	sortByStart(busy)

	var free []Slot
	cursor := dayStart
	for _, s := range busy {
		// schedules entirely outside the day window don't partition it
		if !s.EndTime.After(dayStart) || !s.StartTime.Before(dayEnd) {
			continue
		}
		if s.StartTime.After(cursor) {
			free = append(free, Slot{Start: cursor, End: s.StartTime})
		}
		if s.EndTime.After(cursor) {
			cursor = s.EndTime
		}
	}
	if dayEnd.After(cursor) {
		free = append(free, Slot{Start: cursor, End: dayEnd})
	}

	min := time.Duration(slotMinutes) * time.Minute
	var out []Slot
	for _, slot := range free {
		if slot.End.Sub(slot.Start) >= min {
			out = append(out, slot)
		}
	}
	return out, nil
}

func sortByStart(schedules []*store.Schedule) {
	for i := 1; i < len(schedules); i++ {
		for j := i; j > 0 && schedules[j].StartTime.Before(schedules[j-1].StartTime); j-- {
			schedules[j], schedules[j-1] = schedules[j-1], schedules[j]
		}
	}
}

// TimeBand names the time-of-day bands used for temporary generation.
type TimeBand string

const (
	BandDawn      TimeBand = "dawn"
	BandMorning   TimeBand = "morning"
	BandNoon      TimeBand = "noon"
	BandAfternoon TimeBand = "afternoon"
	BandEvening   TimeBand = "evening"
	BandNight     TimeBand = "night"
)

// HourBand classifies an hour (0..23) into its time-of-day band.
func HourBand(hour int) TimeBand {
	switch {
	case hour >= 5 && hour < 8:
		return BandDawn
	case hour >= 8 && hour < 12:
		return BandMorning
	case hour >= 12 && hour < 14:
		return BandNoon
	case hour >= 14 && hour < 18:
		return BandAfternoon
	case hour >= 18 && hour < 22:
		return BandEvening
	default:
		return BandNight
	}
}

type generatedTemporary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartOffset int    `json:"start_offset_minutes"`
	DurationMin int    `json:"duration_minutes"`
}

const temporaryGenPrompt = `Given free time slots, a character's hobbies and personality, generate 1 to 3 ` +
	`plausible temporary activities filling some of that free time. Respond with strict JSON only, an array of ` +
	`{"title","description","start_offset_minutes","duration_minutes"}, offsets relative to the first free slot's start.`

// GenerateTemporary emits 1-3 temporary schedules for date using free
// slots and character context, falling back to a single slot-1 entry
// chosen by hour band if the LLM is unavailable.
func (e *Engine) GenerateTemporary(ctx context.Context, date time.Time, characterContext string) ([]*store.Schedule, error) {
	slots, err := e.FreeSlots(ctx, date, 30)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	if e.router == nil || !e.router.HasTier(llm.TierTool) {
		return []*store.Schedule{e.fallbackTemporary(slots[0])}, nil
	}

	text, err := e.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: temporaryGenPrompt + "\nCharacter: " + characterContext},
		{Role: "user", Content: fmt.Sprintf("First free slot starts at %s and ends at %s.", slots[0].Start.Format(time.RFC3339), slots[0].End.Format(time.RFC3339))},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Debug("temporary generation call failed, falling back to single slot")
		return []*store.Schedule{e.fallbackTemporary(slots[0])}, nil
	}

	var entries []generatedTemporary
	if err := jsonutil.StrictUnmarshal(text, &entries); err != nil || len(entries) == 0 {
		log.Debug("temporary generation response unparsable or empty, falling back to single slot")
		return []*store.Schedule{e.fallbackTemporary(slots[0])}, nil
	}
	if len(entries) > 3 {
		entries = entries[:3]
	}

	out := make([]*store.Schedule, 0, len(entries))
	for _, g := range entries {
		start := slots[0].Start.Add(time.Duration(g.StartOffset) * time.Minute)
		dur := g.DurationMin
		if dur <= 0 {
			dur = 30
		}
		out = append(out, &store.Schedule{
			ScheduleID:      uuid.NewString(),
			Title:           g.Title,
			Description:     g.Description,
			Kind:            store.ScheduleTemporary,
			StartTime:       start,
			EndTime:         start.Add(time.Duration(dur) * time.Minute),
			Priority:        store.PriorityLow,
			GeneratedReason: "generated from free slots and character context",
			Source:          "generated",
			IsQueryable:     true,
			IsActive:        true,
			Created:         time.Now().UTC(),
		})
	}
	return out, nil
}

func (e *Engine) fallbackTemporary(slot Slot) *store.Schedule {
	band := HourBand(slot.Start.Hour())
	return &store.Schedule{
		ScheduleID:      uuid.NewString(),
		Title:           fmt.Sprintf("%s activity", band),
		Description:     fmt.Sprintf("a quiet %s moment", band),
		Kind:            store.ScheduleTemporary,
		StartTime:       slot.Start,
		EndTime:         slot.Start.Add(30 * time.Minute),
		Priority:        store.PriorityLow,
		GeneratedReason: "fallback: temporary generation LLM unavailable",
		Source:          "generated",
		IsQueryable:     true,
		IsActive:        true,
		Created:         time.Now().UTC(),
	}
}
