package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/store"
)

func (d *DB) AppendMessage(ctx context.Context, conversationID string, msg *store.Message) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableMessages+` (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, conversationID, string(msg.Role), msg.Content, unixOf(msg.Timestamp))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (d *DB) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*store.Message, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, role, content, timestamp FROM (
			SELECT id, role, content, timestamp FROM `+tableMessages+`
			WHERE conversation_id = ? ORDER BY timestamp DESC LIMIT ?
		 ) ORDER BY timestamp ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (d *DB) CountUserMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+tableMessages+` WHERE conversation_id = ? AND role = ?`,
		conversationID, string(store.RoleUser)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count user messages: %w", err)
	}
	return n, nil
}

// OldestUserRounds returns the oldest `rounds` user turns and their
// interleaved assistant/system replies, used by the archival step. A
// round ends just before the next user message, so the reply to the last
// archived turn is included.
func (d *DB) OldestUserRounds(ctx context.Context, conversationID string, rounds int) ([]*store.Message, error) {
	if rounds <= 0 {
		return nil, nil
	}
	// Verify at least `rounds` user messages exist.
	var nth sql.NullInt64
	err := d.sql.QueryRowContext(ctx,
		`SELECT timestamp FROM `+tableMessages+`
		 WHERE conversation_id = ? AND role = ? ORDER BY timestamp ASC LIMIT 1 OFFSET ?`,
		conversationID, string(store.RoleUser), rounds-1).Scan(&nth)
	if errors.Is(err, sql.ErrNoRows) || !nth.Valid {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find archival cutoff: %w", err)
	}

	// The boundary is the (rounds+1)th user message; everything strictly
	// before it belongs to the archived rounds. Without one, every
	// message is archived.
	var boundary sql.NullInt64
	err = d.sql.QueryRowContext(ctx,
		`SELECT timestamp FROM `+tableMessages+`
		 WHERE conversation_id = ? AND role = ? ORDER BY timestamp ASC LIMIT 1 OFFSET ?`,
		conversationID, string(store.RoleUser), rounds).Scan(&boundary)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find archival boundary: %w", err)
	}

	query := `SELECT id, role, content, timestamp FROM ` + tableMessages + `
		 WHERE conversation_id = ?`
	args := []any{conversationID}
	if boundary.Valid {
		query += ` AND timestamp < ?`
		args = append(args, boundary.Int64)
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("oldest user rounds: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (d *DB) DeleteMessagesBefore(ctx context.Context, conversationID string, cutoff time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`DELETE FROM `+tableMessages+` WHERE conversation_id = ? AND timestamp <= ?`,
		conversationID, unixOf(cutoff))
	if err != nil {
		return fmt.Errorf("delete archived messages: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]*store.Message, error) {
	var out []*store.Message
	for rows.Next() {
		var m store.Message
		var role string
		var ts int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = store.Role(role)
		m.Timestamp = timeOf(ts)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (d *DB) InsertSummary(ctx context.Context, conversationID string, s *store.Summary) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableSummaries+` (uuid, conversation_id, text, rounds, message_count, created_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UUID, conversationID, s.Text, s.Rounds, s.MessageCount, unixOf(s.CreatedAt), unixOf(s.EndedAt))
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (d *DB) ListSummaries(ctx context.Context, conversationID string, limit int) ([]*store.Summary, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT uuid, text, rounds, message_count, created_at, ended_at FROM (
			SELECT uuid, text, rounds, message_count, created_at, ended_at FROM `+tableSummaries+`
			WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?
		 ) ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []*store.Summary
	for rows.Next() {
		var s store.Summary
		var created, ended int64
		if err := rows.Scan(&s.UUID, &s.Text, &s.Rounds, &s.MessageCount, &created, &ended); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.CreatedAt, s.EndedAt = timeOf(created), timeOf(ended)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (d *DB) InsertEmotionSnapshot(ctx context.Context, conversationID string, s *store.EmotionSnapshot) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableEmotionSnapshots+`
		 (uuid, conversation_id, relationship_type, emotional_tone, overall_score,
		  intimacy, trust, pleasure, resonance, dependence, created_at, analysis_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UUID, conversationID, s.RelationshipType, s.EmotionalTone, s.OverallScore,
		s.Dims.Intimacy, s.Dims.Trust, s.Dims.Pleasure, s.Dims.Resonance, s.Dims.Dependence,
		unixOf(s.CreatedAt), s.AnalysisSummary)
	if err != nil {
		return fmt.Errorf("insert emotion snapshot: %w", err)
	}
	return nil
}

func (d *DB) LatestEmotionSnapshot(ctx context.Context, conversationID string) (*store.EmotionSnapshot, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, relationship_type, emotional_tone, overall_score,
		        intimacy, trust, pleasure, resonance, dependence, created_at, analysis_summary
		 FROM `+tableEmotionSnapshots+` WHERE conversation_id = ? ORDER BY created_at DESC LIMIT 1`,
		conversationID)
	var s store.EmotionSnapshot
	var created int64
	err := row.Scan(&s.UUID, &s.RelationshipType, &s.EmotionalTone, &s.OverallScore,
		&s.Dims.Intimacy, &s.Dims.Trust, &s.Dims.Pleasure, &s.Dims.Resonance, &s.Dims.Dependence,
		&created, &s.AnalysisSummary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan emotion snapshot: %w", err)
	}
	s.CreatedAt = timeOf(created)
	return &s, nil
}

func (d *DB) InsertExpressionStyle(ctx context.Context, s *store.ExpressionStyle) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	if s.Created.IsZero() {
		s.Created = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableExpressionStyles+` (uuid, kind, expression, meaning, category, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.UUID, string(s.Kind), s.Expression, s.Meaning, s.Category, unixOf(s.Created))
	if err != nil {
		return fmt.Errorf("insert expression style: %w", err)
	}
	return nil
}

func (d *DB) ListExpressionStyles(ctx context.Context, kind store.ExpressionKind, limit int) ([]*store.ExpressionStyle, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT uuid, kind, expression, meaning, category, created FROM `+tableExpressionStyles+`
		 WHERE kind = ? ORDER BY created DESC LIMIT ?`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list expression styles: %w", err)
	}
	defer rows.Close()

	var out []*store.ExpressionStyle
	for rows.Next() {
		var s store.ExpressionStyle
		var kindStr string
		var created int64
		if err := rows.Scan(&s.UUID, &kindStr, &s.Expression, &s.Meaning, &s.Category, &created); err != nil {
			return nil, fmt.Errorf("scan expression style: %w", err)
		}
		s.Kind = store.ExpressionKind(kindStr)
		s.Created = timeOf(created)
		out = append(out, &s)
	}
	return out, rows.Err()
}
