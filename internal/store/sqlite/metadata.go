package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

func (d *DB) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM `+tableMetadata+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get metadata: %w", err)
	}
	return value, true, nil
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableMetadata+` (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// IncrementMetadataInt atomically increments an integer counter stored
// in metadata, used for total_conversations / last_emotion_rounds /
// last_expression_learn_rounds. Counters live only here so they survive
// restarts.
func (d *DB) IncrementMetadataInt(ctx context.Context, key string, delta int) (int, error) {
	var result int
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var cur string
		err := tx.QueryRowContext(ctx, `SELECT value FROM `+tableMetadata+` WHERE key = ?`, key).Scan(&cur)
		n := 0
		if err == nil {
			n, _ = strconv.Atoi(cur)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read metadata counter: %w", err)
		}
		n += delta
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tableMetadata+` (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, strconv.Itoa(n)); err != nil {
			return fmt.Errorf("write metadata counter: %w", err)
		}
		result = n
		return nil
	})
	return result, err
}
