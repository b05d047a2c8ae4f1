package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/store"
)

func (d *DB) CreateEvent(ctx context.Context, e *store.Event) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tableEvents+` (event_id, title, description, kind, priority, status, metadata_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.EventID, e.Title, e.Description, string(e.Kind), int(e.Priority), string(e.Status), string(meta), unixOf(e.CreatedAt)); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		for _, l := range e.Logs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+tableEventLogs+` (event_id, timestamp, action, content) VALUES (?, ?, ?, ?)`,
				e.EventID, unixOf(l.Timestamp), l.Action, l.Content); err != nil {
				return fmt.Errorf("create event log: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT event_id, title, description, kind, priority, status, metadata_json, created_at
		 FROM `+tableEvents+` WHERE event_id = ?`, id)
	var e store.Event
	var kind, status, metaJSON string
	var created int64
	if err := row.Scan(&e.EventID, &e.Title, &e.Description, &kind, &e.Priority, &status, &metaJSON, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Kind, e.Status, e.CreatedAt = store.EventKind(kind), store.EventStatus(status), timeOf(created)
	_ = json.Unmarshal([]byte(metaJSON), &e.Metadata)

	rows, err := d.sql.QueryContext(ctx,
		`SELECT timestamp, action, content FROM `+tableEventLogs+` WHERE event_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list event logs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l store.EventLog
		var ts int64
		if err := rows.Scan(&ts, &l.Action, &l.Content); err != nil {
			return nil, fmt.Errorf("scan event log: %w", err)
		}
		l.Timestamp = timeOf(ts)
		e.Logs = append(e.Logs, l)
	}
	return &e, rows.Err()
}

func (d *DB) UpdateEventStatus(ctx context.Context, id string, status store.EventStatus) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE `+tableEvents+` SET status = ? WHERE event_id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (d *DB) AppendEventLog(ctx context.Context, id string, l store.EventLog) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableEventLogs+` (event_id, timestamp, action, content) VALUES (?, ?, ?, ?)`,
		id, unixOf(l.Timestamp), l.Action, l.Content)
	if err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

func (d *DB) SetEventMetadata(ctx context.Context, id string, metadata map[string]string) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE `+tableEvents+` SET metadata_json = ? WHERE event_id = ?`, string(meta), id)
		if err != nil {
			return fmt.Errorf("set event metadata: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}
