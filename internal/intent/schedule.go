// Package intent holds the strict-JSON classifiers: schedule intent,
// query precision, and confirmation keyword checks. Classifiers degrade
// to a neutral value on any parse failure rather than retry or
// propagate.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
)

var log = obs.For("intent")

// ScheduleType enumerates the classifier's schedule_type field.
type ScheduleType string

const (
	ScheduleTypeAppointment ScheduleType = "appointment"
	ScheduleTypeQuery       ScheduleType = "query"
	ScheduleTypeNone        ScheduleType = "none"
)

// ScheduleIntent is the schedule classifier's full result shape.
type ScheduleIntent struct {
	HasScheduleIntent bool         `json:"has_schedule_intent"`
	ScheduleType      ScheduleType `json:"schedule_type"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	TimeExpression    string       `json:"time_expression"`
	StartTime         *time.Time   `json:"-"`
	EndTime           *time.Time   `json:"-"`
	RawStartTime      string       `json:"start_time"`
	RawEndTime        string       `json:"end_time"`
	InvolvesAgent     bool         `json:"involves_agent"`
	InvolvesUser      bool         `json:"involves_user"`
	Confidence        float64      `json:"confidence"`
	Reasoning         string       `json:"reasoning"`
}

func neutralScheduleIntent() *ScheduleIntent {
	return &ScheduleIntent{ScheduleType: ScheduleTypeNone, Reasoning: "classifier unavailable"}
}

const scheduleIntentPrompt = `You are a schedule-intent classifier. Decide whether the user's message ` +
	`carries a schedule-related intent: creating an appointment, or querying existing schedule state. ` +
	`Extract a time expression if one is present even if it is relative ("tomorrow", "next Wednesday afternoon"). ` +
	`Respond with strict JSON only: {"has_schedule_intent","schedule_type":"appointment"|"query"|"none",` +
	`"title","description","time_expression","start_time":"ISO-8601 or null","end_time":"ISO-8601 or null",` +
	`"involves_agent","involves_user","confidence","reasoning"}.`

// DetectScheduleIntent runs the Tool-tier classifier and, when the model
// names a relative time expression but no explicit start_time, applies
// the deterministic resolver. Unparsable or unreachable responses
// degrade to a neutral "no intent" value; this function never returns
// an error to the caller.
func DetectScheduleIntent(ctx context.Context, router *llm.Router, userInput, characterName string, now time.Time) *ScheduleIntent {
	if router == nil || !router.HasTier(llm.TierTool) {
		return neutralScheduleIntent()
	}

	text, err := router.Chat(ctx, []llm.Message{
		{Role: "system", Content: scheduleIntentPrompt + "\nAgent name: " + characterName},
		{Role: "user", Content: userInput},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Debug("schedule intent call failed, treating as no intent")
		return neutralScheduleIntent()
	}

	var result ScheduleIntent
	if err := jsonutil.StrictUnmarshal(text, &result); err != nil {
		log.WithError(err).Debug("schedule intent response unparsable, treating as no intent")
		return neutralScheduleIntent()
	}

	if result.RawStartTime != "" {
		if t, err := time.Parse(time.RFC3339, result.RawStartTime); err == nil {
			result.StartTime = &t
		}
	}
	if result.RawEndTime != "" {
		if t, err := time.Parse(time.RFC3339, result.RawEndTime); err == nil {
			result.EndTime = &t
		}
	}

	if result.HasScheduleIntent && result.StartTime == nil && result.TimeExpression != "" {
		if start, end, ok := ResolveTimeExpression(result.TimeExpression, now); ok {
			result.StartTime, result.EndTime = &start, &end
		}
	}
	return &result
}

// weekdayMap maps Chinese and English weekday tokens to Go's
// time.Weekday numbering (Sunday=0).
var weekdayMap = map[string]time.Weekday{
	"一": time.Monday, "二": time.Tuesday, "三": time.Wednesday, "四": time.Thursday,
	"五": time.Friday, "六": time.Saturday, "日": time.Sunday, "天": time.Sunday,
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday, "sunday": time.Sunday,
}

var weekdayPattern = regexp.MustCompile(`[周星期]([一二三四五六日天])|\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

// ResolveTimeExpression deterministically maps a Chinese/English
// relative time expression to an instant pair with a 2-hour default
// duration. Returns ok=false when the expression names no recognisable
// date.
func ResolveTimeExpression(expr string, now time.Time) (start, end time.Time, ok bool) {
	lower := strings.ToLower(expr)
	var target time.Time

	switch {
	case strings.Contains(expr, "大后天"):
		target = now.AddDate(0, 0, 3)
	case strings.Contains(expr, "后天"):
		target = now.AddDate(0, 0, 2)
	case strings.Contains(expr, "明天"), strings.Contains(expr, "明日"), strings.Contains(lower, "tomorrow"):
		target = now.AddDate(0, 0, 1)
	case strings.Contains(expr, "下周"), strings.Contains(lower, "next week"):
		if wd, found := matchWeekday(expr, lower); found {
			daysAhead := int(wd-now.Weekday()+7) % 7
			if daysAhead <= 0 {
				daysAhead += 7
			}
			target = now.AddDate(0, 0, daysAhead+7)
		} else {
			target = now.AddDate(0, 0, 7)
		}
	case strings.Contains(expr, "今天"), strings.Contains(expr, "今日"), strings.Contains(lower, "today"):
		target = now
	default:
		if wd, found := matchWeekday(expr, lower); found {
			daysAhead := int(wd-now.Weekday()+7) % 7
			target = now.AddDate(0, 0, daysAhead)
		} else {
			return time.Time{}, time.Time{}, false
		}
	}

	hour, minute := resolveHour(expr, lower)
	loc := now.Location()
	start = time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, loc)
	end = start.Add(2 * time.Hour)
	return start, end, true
}

func matchWeekday(expr, lower string) (time.Weekday, bool) {
	m := weekdayPattern.FindStringSubmatch(expr)
	if m == nil {
		m = weekdayPattern.FindStringSubmatch(lower)
	}
	if m == nil {
		return 0, false
	}
	token := m[1]
	if token == "" {
		token = m[2]
	}
	wd, ok := weekdayMap[token]
	return wd, ok
}

var explicitHourPattern = regexp.MustCompile(`(\d{1,2})[点时:：](\d{1,2})?`)

func resolveHour(expr, lower string) (hour, minute int) {
	if m := explicitHourPattern.FindStringSubmatch(expr); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		return hour, minute
	}

	switch {
	case strings.Contains(expr, "早上"), strings.Contains(expr, "上午"), strings.Contains(expr, "早晨"), strings.Contains(lower, "morning"):
		return 9, 0
	case strings.Contains(expr, "中午"), strings.Contains(lower, "noon"):
		return 12, 0
	case strings.Contains(expr, "下午"), strings.Contains(lower, "afternoon"):
		return 14, 0
	case strings.Contains(expr, "晚上"), strings.Contains(expr, "傍晚"), strings.Contains(lower, "evening"):
		return 18, 0
	case strings.Contains(expr, "夜里"), strings.Contains(expr, "深夜"), strings.Contains(lower, "night"):
		return 22, 0
	default:
		return 14, 0
	}
}

// IsQuerySchedule is a fast keyword pre-check for schedule-query intent.
func IsQuerySchedule(userInput string) bool {
	keywords := []string{
		"日程", "安排", "计划", "行程", "什么时候", "有什么事", "忙不忙", "空闲", "有空", "在干什么", "在做什么",
		"schedule", "agenda", "free", "busy", "what time",
	}
	lower := strings.ToLower(userInput)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// appointmentKeywords complement IsQuerySchedule's query vocabulary with
// plan-making vocabulary, so the gate covers both classifier outcomes.
var appointmentKeywords = []string{
	"约", "预约", "见面", "碰面", "提醒", "明天", "后天", "今晚", "下周", "周末",
	"meet", "appointment", "remind", "book", "plan", "tomorrow", "tonight", "next week", "weekend",
}

// HasScheduleKeywords is the cheap gate in front of DetectScheduleIntent:
// the Tool-tier classifier only runs when the turn mentions either
// querying the schedule or making plans.
func HasScheduleKeywords(userInput string) bool {
	if IsQuerySchedule(userInput) {
		return true
	}
	lower := strings.ToLower(userInput)
	for _, kw := range appointmentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
