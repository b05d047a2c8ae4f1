package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/store"
)

func (d *DB) CreateEnvironment(ctx context.Context, env *store.Environment) error {
	active := 0
	if env.IsActive {
		active = 1
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableEnvironments+`
		 (uuid, name, overall_description, atmosphere, lighting, sounds, smells, is_active, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.UUID, env.Name, env.OverallDescription, env.Atmosphere, env.Lighting, env.Sounds, env.Smells, active, unixOf(env.Created))
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}
	return nil
}

func (d *DB) GetEnvironment(ctx context.Context, id string) (*store.Environment, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, name, overall_description, atmosphere, lighting, sounds, smells, is_active, created
		 FROM `+tableEnvironments+` WHERE uuid = ?`, id)
	return scanEnvironment(row)
}

func scanEnvironment(row *sql.Row) (*store.Environment, error) {
	var e store.Environment
	var active int
	var created int64
	if err := row.Scan(&e.UUID, &e.Name, &e.OverallDescription, &e.Atmosphere, &e.Lighting, &e.Sounds, &e.Smells, &active, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan environment: %w", err)
	}
	e.IsActive = active != 0
	e.Created = timeOf(created)
	return &e, nil
}

func (d *DB) ListEnvironments(ctx context.Context) ([]*store.Environment, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT uuid, name, overall_description, atmosphere, lighting, sounds, smells, is_active, created
		 FROM `+tableEnvironments+` ORDER BY created ASC`)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	defer rows.Close()

	var out []*store.Environment
	for rows.Next() {
		var e store.Environment
		var active int
		var created int64
		if err := rows.Scan(&e.UUID, &e.Name, &e.OverallDescription, &e.Atmosphere, &e.Lighting, &e.Sounds, &e.Smells, &active, &created); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		e.IsActive = active != 0
		e.Created = timeOf(created)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (d *DB) ActiveEnvironment(ctx context.Context) (*store.Environment, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, name, overall_description, atmosphere, lighting, sounds, smells, is_active, created
		 FROM `+tableEnvironments+` WHERE is_active = 1 LIMIT 1`)
	return scanEnvironment(row)
}

// ActivateEnvironment enforces the single-active invariant with a
// two-statement transaction: deactivate all, then activate the target.
func (d *DB) ActivateEnvironment(ctx context.Context, id string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+tableEnvironments+` WHERE uuid = ?`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return fmt.Errorf("check environment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE `+tableEnvironments+` SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("deactivate environments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE `+tableEnvironments+` SET is_active = 1 WHERE uuid = ?`, id)
		if err != nil {
			return fmt.Errorf("activate environment: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return errs.ErrConflict
		}
		return nil
	})
}

func (d *DB) CreateDomain(ctx context.Context, dom *store.Domain) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableDomains+` (uuid, name, description, default_environment_uuid, created)
		 VALUES (?, ?, ?, ?, ?)`,
		dom.UUID, dom.Name, dom.Description, dom.DefaultEnvironmentUUID, unixOf(dom.Created))
	if err != nil {
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

func (d *DB) GetDomain(ctx context.Context, id string) (*store.Domain, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT uuid, name, description, default_environment_uuid, created FROM `+tableDomains+` WHERE uuid = ?`, id)
	var dom store.Domain
	var created int64
	if err := row.Scan(&dom.UUID, &dom.Name, &dom.Description, &dom.DefaultEnvironmentUUID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan domain: %w", err)
	}
	dom.Created = timeOf(created)
	return &dom, nil
}

func (d *DB) ListDomains(ctx context.Context) ([]*store.Domain, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT uuid, name, description, default_environment_uuid, created FROM `+tableDomains+` ORDER BY created ASC`)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var out []*store.Domain
	for rows.Next() {
		var dom store.Domain
		var created int64
		if err := rows.Scan(&dom.UUID, &dom.Name, &dom.Description, &dom.DefaultEnvironmentUUID, &created); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		dom.Created = timeOf(created)
		out = append(out, &dom)
	}
	return out, rows.Err()
}

func (d *DB) LinkEnvironmentDomain(ctx context.Context, envUUID, domainUUID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+tableEnvironmentDomains+` (environment_uuid, domain_uuid) VALUES (?, ?)`,
		envUUID, domainUUID)
	if err != nil {
		return fmt.Errorf("link environment to domain: %w", err)
	}
	return nil
}

func (d *DB) DomainsForEnvironment(ctx context.Context, envUUID string) ([]*store.Domain, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT d.uuid, d.name, d.description, d.default_environment_uuid, d.created
		 FROM `+tableDomains+` d
		 JOIN `+tableEnvironmentDomains+` ed ON ed.domain_uuid = d.uuid
		 WHERE ed.environment_uuid = ? ORDER BY d.created ASC`, envUUID)
	if err != nil {
		return nil, fmt.Errorf("domains for environment: %w", err)
	}
	defer rows.Close()

	var out []*store.Domain
	for rows.Next() {
		var dom store.Domain
		var created int64
		if err := rows.Scan(&dom.UUID, &dom.Name, &dom.Description, &dom.DefaultEnvironmentUUID, &created); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		dom.Created = timeOf(created)
		out = append(out, &dom)
	}
	return out, rows.Err()
}

func (d *DB) EnvironmentsInDomain(ctx context.Context, domainUUID string) ([]*store.Environment, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT e.uuid, e.name, e.overall_description, e.atmosphere, e.lighting, e.sounds, e.smells, e.is_active, e.created
		 FROM `+tableEnvironments+` e
		 JOIN `+tableEnvironmentDomains+` ed ON ed.environment_uuid = e.uuid
		 WHERE ed.domain_uuid = ? ORDER BY e.created ASC`, domainUUID)
	if err != nil {
		return nil, fmt.Errorf("environments in domain: %w", err)
	}
	defer rows.Close()

	var out []*store.Environment
	for rows.Next() {
		var e store.Environment
		var active int
		var created int64
		if err := rows.Scan(&e.UUID, &e.Name, &e.OverallDescription, &e.Atmosphere, &e.Lighting, &e.Sounds, &e.Smells, &active, &created); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		e.IsActive = active != 0
		e.Created = timeOf(created)
		out = append(out, &e)
	}
	return out, rows.Err()
}
