// Package store defines the persistence abstraction over the single
// relational database backing the agent. It exposes typed operations,
// not SQL; the sqlite subpackage provides the concrete implementation.
package store

import "time"

// Role is a message's speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is append-only within a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Entity is a named subject of knowledge, unique by normalised name.
type Entity struct {
	UUID    string
	Name    string
	Created time.Time
	Updated time.Time
}

// Definition is the authoritative "is/means" statement for an entity.
type Definition struct {
	EntityUUID     string
	Content        string
	Type           string
	Source         string
	Confidence     float64
	Priority       int
	IsBaseKnowledge bool
}

// RelatedInfoStatus tracks how confident the system is in a related fact.
type RelatedInfoStatus string

const (
	StatusSuspected RelatedInfoStatus = "suspected"
	StatusConfirmed RelatedInfoStatus = "confirmed"
)

// RelatedInfo is any non-definitional statement about an entity.
type RelatedInfo struct {
	UUID         string
	EntityUUID   string
	Content      string
	Type         string
	Source       string
	Confidence   float64
	Status       RelatedInfoStatus
	MentionCount int
	Created      time.Time
}

// BaseFact is a top-priority, immutable entity statement.
type BaseFact struct {
	EntityName  string
	Content     string
	Category    string
	Description string
	Confidence  float64
	Priority    int
	Immutable   bool
	Created     time.Time
}

// Summary is a compressed topic description created on archival.
type Summary struct {
	UUID         string
	Text         string
	Rounds       int
	MessageCount int
	CreatedAt    time.Time
	EndedAt      time.Time
}

// EmotionDims holds the five-dimension relationship scores.
type EmotionDims struct {
	Intimacy   float64
	Trust      float64
	Pleasure   float64
	Resonance  float64
	Dependence float64
}

// EmotionSnapshot is an append-only, dated relationship reading.
type EmotionSnapshot struct {
	UUID             string
	RelationshipType string
	EmotionalTone    string
	OverallScore     float64
	Dims             EmotionDims
	CreatedAt        time.Time
	AnalysisSummary  string
}

// Environment is a single described place.
type Environment struct {
	UUID                string
	Name                string
	OverallDescription  string
	Atmosphere          string
	Lighting            string
	Sounds              string
	Smells              string
	IsActive            bool
	Created             time.Time
}

// Domain groups environments into a region.
type Domain struct {
	UUID                  string
	Name                  string
	Description           string
	DefaultEnvironmentUUID string
	Created               time.Time
}

// ScheduleKind enumerates the three schedule kinds.
type ScheduleKind string

const (
	ScheduleRecurring   ScheduleKind = "recurring"
	ScheduleAppointment ScheduleKind = "appointment"
	ScheduleTemporary   ScheduleKind = "temporary"
)

// SchedulePriority enumerates schedule priority bands, ordered low..critical.
type SchedulePriority int

const (
	PriorityLow SchedulePriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p SchedulePriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "low"
	}
}

// CollaborationStatus tracks user-confirmation state for schedules that
// involve the user.
type CollaborationStatus string

const (
	CollaborationNone     CollaborationStatus = "none"
	CollaborationPending  CollaborationStatus = "pending"
	CollaborationAccepted CollaborationStatus = "accepted"
	CollaborationDeclined CollaborationStatus = "declined"
)

// Schedule is one of recurring, appointment, or temporary.
type Schedule struct {
	ScheduleID          string
	Title               string
	Description         string
	Kind                ScheduleKind
	StartTime           time.Time
	EndTime             time.Time
	Priority            SchedulePriority
	Weekday             *int // 0..6, recurring only
	RecurrencePattern   string
	GeneratedReason     string
	InvolvesUser        bool
	CollaborationStatus CollaborationStatus
	IsQueryable         bool
	IsActive            bool
	Source              string
	Created             time.Time
}

// Queryable reports whether the schedule should be returned by queries:
// pending or declined user-collaborations stay hidden.
func (s *Schedule) Queryable() bool {
	return s.CollaborationStatus == CollaborationNone || s.CollaborationStatus == CollaborationAccepted
}

// EventKind distinguishes notification events from task events.
type EventKind string

const (
	EventNotification EventKind = "notification"
	EventTask         EventKind = "task"
)

// EventStatus is the lifecycle state of an Event.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
)

// EventLog is one entry in an Event's append-only log.
type EventLog struct {
	Timestamp time.Time
	Action    string
	Content   string
}

// Event is created externally and transitioned through status by the
// kernel.
type Event struct {
	EventID     string
	Title       string
	Description string
	Kind        EventKind
	Priority    SchedulePriority
	Status      EventStatus
	Metadata    map[string]string
	Logs        []EventLog
	CreatedAt   time.Time
}

// ExpressionKind distinguishes learned agent vs. user expression habits.
type ExpressionKind string

const (
	ExpressionAgent ExpressionKind = "agent"
	ExpressionUser  ExpressionKind = "user"
)

// ExpressionStyle is a learned habitual expression.
type ExpressionStyle struct {
	UUID       string
	Kind       ExpressionKind
	Expression string
	Meaning    string
	Category   string
	Created    time.Time
}
