package store

import (
	"context"
	"time"
)

// ScheduleFilter narrows schedule range queries.
type ScheduleFilter struct {
	QueryableOnly bool
	ActiveOnly    bool
}

// Store is the persistence abstraction over the single relational
// database. Each method is its own write; the interface offers no
// transaction spanning several calls, so archival (InsertSummary then
// DeleteMessagesBefore) is two separate writes. Implementations must
// return the sentinel errors in internal/kernel/errs.
type Store interface {
	// --- Entities ---
	GetOrCreateEntity(ctx context.Context, name string) (*Entity, error)
	GetEntityByName(ctx context.Context, name string) (*Entity, error)
	GetEntityByUUID(ctx context.Context, uuid string) (*Entity, error)

	// --- Definitions ---
	GetDefinition(ctx context.Context, entityUUID string) (*Definition, error)
	SetDefinition(ctx context.Context, def *Definition) error

	// --- Related info ---
	// AddOrIncrementRelatedInfo matches by (entityUUID, normalised content);
	// on a match it increments MentionCount instead of inserting.
	AddOrIncrementRelatedInfo(ctx context.Context, info *RelatedInfo) (*RelatedInfo, error)
	ListRelatedInfo(ctx context.Context, entityUUID string, limit int) ([]*RelatedInfo, error)

	// --- Base facts ---
	AddBaseFact(ctx context.Context, fact *BaseFact) error
	GetBaseFact(ctx context.Context, entityName string) (*BaseFact, error)

	// --- Messages ---
	AppendMessage(ctx context.Context, conversationID string, msg *Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	CountUserMessages(ctx context.Context, conversationID string) (int, error)
	OldestUserRounds(ctx context.Context, conversationID string, rounds int) ([]*Message, error)
	DeleteMessagesBefore(ctx context.Context, conversationID string, cutoff time.Time) error

	// --- Summaries ---
	InsertSummary(ctx context.Context, conversationID string, s *Summary) error
	ListSummaries(ctx context.Context, conversationID string, limit int) ([]*Summary, error)

	// --- Emotion snapshots ---
	InsertEmotionSnapshot(ctx context.Context, conversationID string, s *EmotionSnapshot) error
	LatestEmotionSnapshot(ctx context.Context, conversationID string) (*EmotionSnapshot, error)

	// --- Expression styles ---
	InsertExpressionStyle(ctx context.Context, s *ExpressionStyle) error
	ListExpressionStyles(ctx context.Context, kind ExpressionKind, limit int) ([]*ExpressionStyle, error)

	// --- Environments / domains ---
	CreateEnvironment(ctx context.Context, env *Environment) error
	GetEnvironment(ctx context.Context, uuid string) (*Environment, error)
	ListEnvironments(ctx context.Context) ([]*Environment, error)
	ActiveEnvironment(ctx context.Context) (*Environment, error)
	// ActivateEnvironment enforces the single-active invariant transactionally.
	ActivateEnvironment(ctx context.Context, uuid string) error
	CreateDomain(ctx context.Context, dom *Domain) error
	GetDomain(ctx context.Context, uuid string) (*Domain, error)
	ListDomains(ctx context.Context) ([]*Domain, error)
	LinkEnvironmentDomain(ctx context.Context, envUUID, domainUUID string) error
	EnvironmentsInDomain(ctx context.Context, domainUUID string) ([]*Environment, error)
	// DomainsForEnvironment is the reverse lookup: the domains an
	// environment belongs to, in creation order.
	DomainsForEnvironment(ctx context.Context, envUUID string) ([]*Domain, error)

	// --- Schedules ---
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) error
	// SoftDeleteSchedule marks a schedule inactive; used by both conflict
	// resolution and similarity resolution.
	SoftDeleteSchedule(ctx context.Context, id string) error
	// OverlappingSchedules returns active schedules strictly overlapping
	// [start,end), materialising recurring schedules by weekday.
	OverlappingSchedules(ctx context.Context, start, end time.Time) ([]*Schedule, error)
	// SameDaySchedules returns non-recurring schedules on the given
	// calendar date (system timezone).
	SameDaySchedules(ctx context.Context, date time.Time) ([]*Schedule, error)
	// InRange returns schedules strictly overlapping [start,end), filtered
	// per ScheduleFilter, materialising recurring schedules by weekday.
	InRange(ctx context.Context, start, end time.Time, filter ScheduleFilter) ([]*Schedule, error)
	DayActiveQueryableSchedules(ctx context.Context, date time.Time) ([]*Schedule, error)
	// PendingCollaborationSchedules returns active, user-involving schedules
	// still awaiting confirmation, most recently created first.
	PendingCollaborationSchedules(ctx context.Context) ([]*Schedule, error)

	// --- Events ---
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEventStatus(ctx context.Context, id string, status EventStatus) error
	AppendEventLog(ctx context.Context, id string, log EventLog) error
	SetEventMetadata(ctx context.Context, id string, metadata map[string]string) error

	// --- Metadata kv ---
	GetMetadata(ctx context.Context, key string) (string, bool, error)
	SetMetadata(ctx context.Context, key, value string) error
	IncrementMetadataInt(ctx context.Context, key string, delta int) (int, error)

	// Close releases underlying resources.
	Close() error
}
