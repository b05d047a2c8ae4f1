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

// GetOrCreateEntity creates an entity the first time its name is
// referenced; repeat lookups return the existing row.
func (d *DB) GetOrCreateEntity(ctx context.Context, name string) (*store.Entity, error) {
	if e, err := d.GetEntityByName(ctx, name); err == nil {
		return e, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	e := &store.Entity{UUID: uuid.NewString(), Name: name, Created: now, Updated: now}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableEntities+` (uuid, name, name_norm, created, updated) VALUES (?, ?, ?, ?, ?)`,
		e.UUID, e.Name, normalize(name), unixOf(now), unixOf(now))
	if err != nil {
		// lost the create race to a concurrent writer; read back.
		if existing, gerr := d.GetEntityByName(ctx, name); gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return e, nil
}

func (d *DB) GetEntityByName(ctx context.Context, name string) (*store.Entity, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, name, created, updated FROM `+tableEntities+` WHERE name_norm = ?`, normalize(name))
	return scanEntity(row)
}

func (d *DB) GetEntityByUUID(ctx context.Context, id string) (*store.Entity, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, name, created, updated FROM `+tableEntities+` WHERE uuid = ?`, id)
	return scanEntity(row)
}

func scanEntity(row *sql.Row) (*store.Entity, error) {
	var e store.Entity
	var created, updated int64
	if err := row.Scan(&e.UUID, &e.Name, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	e.Created, e.Updated = timeOf(created), timeOf(updated)
	return &e, nil
}

// GetDefinition implements store.Store.
func (d *DB) GetDefinition(ctx context.Context, entityUUID string) (*store.Definition, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT entity_uuid, content, type, source, confidence, priority, is_base_knowledge
		 FROM `+tableDefinitions+` WHERE entity_uuid = ?`, entityUUID)
	var def store.Definition
	var isBase int
	if err := row.Scan(&def.EntityUUID, &def.Content, &def.Type, &def.Source, &def.Confidence, &def.Priority, &isBase); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan definition: %w", err)
	}
	def.IsBaseKnowledge = isBase != 0
	return &def, nil
}

// SetDefinition refuses to overwrite a base-knowledge row.
// KnowledgeGraph.SetDefinition decides whether to call this at all when
// a conflicting base fact exists; this layer only enforces immutability.
func (d *DB) SetDefinition(ctx context.Context, def *store.Definition) error {
	existing, err := d.GetDefinition(ctx, def.EntityUUID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if existing != nil && existing.IsBaseKnowledge && !def.IsBaseKnowledge {
		return errs.ErrImmutable
	}

	isBase := 0
	if def.IsBaseKnowledge {
		isBase = 1
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO `+tableDefinitions+` (entity_uuid, content, type, source, confidence, priority, is_base_knowledge)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(entity_uuid) DO UPDATE SET
		   content=excluded.content, type=excluded.type, source=excluded.source,
		   confidence=excluded.confidence, priority=excluded.priority, is_base_knowledge=excluded.is_base_knowledge`,
		def.EntityUUID, def.Content, def.Type, def.Source, def.Confidence, def.Priority, isBase)
	if err != nil {
		return fmt.Errorf("set definition: %w", err)
	}
	return nil
}

// AddOrIncrementRelatedInfo merges duplicate-by-content writes into a
// single row whose mention count tracks the number of writes.
func (d *DB) AddOrIncrementRelatedInfo(ctx context.Context, info *store.RelatedInfo) (*store.RelatedInfo, error) {
	norm := normalize(info.Content)
	now := time.Now().UTC()

	var result *store.RelatedInfo
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT uuid, mention_count FROM `+tableRelatedInfo+` WHERE entity_uuid = ? AND content_norm = ?`,
			info.EntityUUID, norm)
		var existingUUID string
		var count int
		err := row.Scan(&existingUUID, &count)
		switch {
		case err == nil:
			count++
			// confirmed is sticky: a later suspected write must not
			// downgrade an already-confirmed row.
			if _, err := tx.ExecContext(ctx,
				`UPDATE `+tableRelatedInfo+` SET mention_count = ?,
				 status = CASE WHEN status = 'confirmed' THEN status ELSE ? END
				 WHERE uuid = ?`,
				count, string(info.Status), existingUUID); err != nil {
				return fmt.Errorf("increment related info: %w", err)
			}
			result = &store.RelatedInfo{
				UUID: existingUUID, EntityUUID: info.EntityUUID, Content: info.Content,
				Type: info.Type, Source: info.Source, Confidence: info.Confidence,
				Status: info.Status, MentionCount: count, Created: now,
			}
			return nil
		case errors.Is(err, sql.ErrNoRows):
			id := uuid.NewString()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+tableRelatedInfo+`
				 (uuid, entity_uuid, content, content_norm, type, source, confidence, status, mention_count, created)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
				id, info.EntityUUID, info.Content, norm, info.Type, info.Source, info.Confidence, string(info.Status), unixOf(now)); err != nil {
				return fmt.Errorf("insert related info: %w", err)
			}
			result = &store.RelatedInfo{
				UUID: id, EntityUUID: info.EntityUUID, Content: info.Content,
				Type: info.Type, Source: info.Source, Confidence: info.Confidence,
				Status: info.Status, MentionCount: 1, Created: now,
			}
			return nil
		default:
			return fmt.Errorf("lookup related info: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *DB) ListRelatedInfo(ctx context.Context, entityUUID string, limit int) ([]*store.RelatedInfo, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT uuid, entity_uuid, content, type, source, confidence, status, mention_count, created
		 FROM `+tableRelatedInfo+` WHERE entity_uuid = ?
		 ORDER BY (status = 'confirmed') DESC, created DESC LIMIT ?`,
		entityUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related info: %w", err)
	}
	defer rows.Close()

	var out []*store.RelatedInfo
	for rows.Next() {
		var ri store.RelatedInfo
		var status string
		var created int64
		if err := rows.Scan(&ri.UUID, &ri.EntityUUID, &ri.Content, &ri.Type, &ri.Source, &ri.Confidence, &status, &ri.MentionCount, &created); err != nil {
			return nil, fmt.Errorf("scan related info: %w", err)
		}
		ri.Status = store.RelatedInfoStatus(status)
		ri.Created = timeOf(created)
		out = append(out, &ri)
	}
	return out, rows.Err()
}

// AddBaseFact refuses to overwrite an existing base fact.
func (d *DB) AddBaseFact(ctx context.Context, fact *store.BaseFact) error {
	norm := normalize(fact.EntityName)
	var exists int
	err := d.sql.QueryRowContext(ctx, `SELECT 1 FROM `+tableBaseFacts+` WHERE entity_name_norm = ?`, norm).Scan(&exists)
	if err == nil {
		return errs.ErrImmutable
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check base fact: %w", err)
	}

	now := time.Now().UTC()
	immutable := 0
	if fact.Immutable {
		immutable = 1
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO `+tableBaseFacts+`
		 (entity_name, entity_name_norm, content, category, description, confidence, priority, immutable, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.EntityName, norm, fact.Content, fact.Category, fact.Description, fact.Confidence, fact.Priority, immutable, unixOf(now))
	if err != nil {
		return fmt.Errorf("insert base fact: %w", err)
	}
	return nil
}

// GetBaseFact resolves exact then case-insensitive; since
// entity_name_norm is already the case-insensitive key this is a single
// lookup.
func (d *DB) GetBaseFact(ctx context.Context, entityName string) (*store.BaseFact, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT entity_name, content, category, description, confidence, priority, immutable, created
		 FROM `+tableBaseFacts+` WHERE entity_name_norm = ?`, normalize(entityName))
	var f store.BaseFact
	var immutable int
	var created int64
	if err := row.Scan(&f.EntityName, &f.Content, &f.Category, &f.Description, &f.Confidence, &f.Priority, &immutable, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan base fact: %w", err)
	}
	f.Immutable = immutable != 0
	f.Created = timeOf(created)
	return &f, nil
}
