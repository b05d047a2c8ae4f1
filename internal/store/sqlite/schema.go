package sqlite

import (
	"database/sql"
	"fmt"
)

// Table names, referenced by every query in this package.
const (
	tableEntities           = "entities"
	tableDefinitions        = "definitions"
	tableRelatedInfo        = "related_info"
	tableBaseFacts          = "base_facts"
	tableMessages           = "messages"
	tableSummaries          = "summaries"
	tableEmotionSnapshots   = "emotion_snapshots"
	tableExpressionStyles   = "expression_styles"
	tableEnvironments       = "environments"
	tableDomains            = "domains"
	tableEnvironmentDomains = "environment_domains"
	tableSchedules          = "schedules"
	tableEvents             = "events"
	tableEventLogs          = "event_logs"
	tableMetadata           = "metadata"
)

// ensureSchema creates all tables and indexes required by the Store.
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableEntities + ` (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_norm TEXT NOT NULL UNIQUE,
			created INTEGER NOT NULL,
			updated INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableDefinitions + ` (
			entity_uuid TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			is_base_knowledge INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableRelatedInfo + ` (
			uuid TEXT PRIMARY KEY,
			entity_uuid TEXT NOT NULL,
			content TEXT NOT NULL,
			content_norm TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'suspected',
			mention_count INTEGER NOT NULL DEFAULT 1,
			created INTEGER NOT NULL,
			UNIQUE(entity_uuid, content_norm)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_related_info_entity ON ` + tableRelatedInfo + `(entity_uuid)`,
		`CREATE TABLE IF NOT EXISTS ` + tableBaseFacts + ` (
			entity_name TEXT NOT NULL,
			entity_name_norm TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 1.0,
			priority INTEGER NOT NULL DEFAULT 100,
			immutable INTEGER NOT NULL DEFAULT 1,
			created INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableMessages + ` (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv ON ` + tableMessages + `(conversation_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS ` + tableSummaries + ` (
			uuid TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			text TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			message_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_conv ON ` + tableSummaries + `(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS ` + tableEmotionSnapshots + ` (
			uuid TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			relationship_type TEXT NOT NULL DEFAULT '',
			emotional_tone TEXT NOT NULL DEFAULT '',
			overall_score REAL NOT NULL DEFAULT 0,
			intimacy REAL NOT NULL DEFAULT 0,
			trust REAL NOT NULL DEFAULT 0,
			pleasure REAL NOT NULL DEFAULT 0,
			resonance REAL NOT NULL DEFAULT 0,
			dependence REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			analysis_summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emotion_conv ON ` + tableEmotionSnapshots + `(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS ` + tableExpressionStyles + ` (
			uuid TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			expression TEXT NOT NULL,
			meaning TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableEnvironments + ` (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			overall_description TEXT NOT NULL DEFAULT '',
			atmosphere TEXT NOT NULL DEFAULT '',
			lighting TEXT NOT NULL DEFAULT '',
			sounds TEXT NOT NULL DEFAULT '',
			smells TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 0,
			created INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableDomains + ` (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			default_environment_uuid TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableEnvironmentDomains + ` (
			environment_uuid TEXT NOT NULL,
			domain_uuid TEXT NOT NULL,
			PRIMARY KEY (environment_uuid, domain_uuid)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableSchedules + ` (
			schedule_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			priority INTEGER NOT NULL DEFAULT 1,
			weekday INTEGER,
			recurrence_pattern TEXT NOT NULL DEFAULT '',
			generated_reason TEXT NOT NULL DEFAULT '',
			involves_user INTEGER NOT NULL DEFAULT 0,
			collaboration_status TEXT NOT NULL DEFAULT 'none',
			is_queryable INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 1,
			source TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_range ON ` + tableSchedules + `(start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_kind ON ` + tableSchedules + `(kind)`,
		`CREATE TABLE IF NOT EXISTS ` + tableEvents + ` (
			event_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'pending',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableEventLogs + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			action TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_event ON ` + tableEventLogs + `(event_id)`,
		`CREATE TABLE IF NOT EXISTS ` + tableMetadata + ` (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}
