package guest

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/soiree/soiree/platform/flake"
	"github.com/soiree/soiree/platform/pg"
)

const (
	pgUpsertGuest = `INSERT INTO
		%s.guests(id, event_id, name, email, role, department, deleted, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id, email) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			department = EXCLUDED.department,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	pgUpdateGuest = `
		UPDATE
			%s.guests
		SET
			name = $2,
			email = $3,
			role = $4,
			department = $5,
			deleted = $6,
			updated_at = $7
		WHERE
			id = $1`

	pgClauseBefore   = `created_at < ?`
	pgClauseDeleted  = `deleted = ?`
	pgClauseEmails   = `email IN (?)`
	pgClauseEventIDs = `event_id IN (?)`
	pgClauseIDs      = `id IN (?)`

	pgListGuests = `
		SELECT
			id, event_id, name, email, role, department, deleted, created_at, updated_at
		FROM
			%s.guests
		%s`

	pgOrderCreatedAt = `ORDER BY created_at ASC`

	pgCreateScheme = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.guests(
		id BIGINT NOT NULL UNIQUE,
		event_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT,
		department TEXT,
		deleted BOOL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(event_id, email)
	)`
	pgDropTable = `DROP TABLE IF EXISTS %s.guests`
)

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{
		db: db,
	}
}

func (s *pgService) Put(ns string, g *Guest) (*Guest, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if g.ID == 0 {
		return s.upsert(ns, g)
	}

	return s.update(ns, g)
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listGuests(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		fmt.Sprintf(pgCreateScheme, ns),
		fmt.Sprintf(pgCreateTable, ns),
	}

	for _, q := range qs {
		_, err := s.db.Exec(q)
		if err != nil {
			return fmt.Errorf("setup '%s': %s", q, err)
		}
	}

	return nil
}

func (s *pgService) Teardown(ns string) error {
	qs := []string{
		fmt.Sprintf(pgDropTable, ns),
	}

	for _, q := range qs {
		_, err := s.db.Exec(q)
		if err != nil {
			return fmt.Errorf("teardown '%s': %s", q, err)
		}
	}

	return nil
}

func (s *pgService) upsert(ns string, g *Guest) (*Guest, error) {
	ts, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	g.CreatedAt = ts
	g.UpdatedAt = ts

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	g.ID = id

	var (
		params = []interface{}{
			g.ID,
			g.EventID,
			g.Name,
			g.Email,
			g.Role,
			g.Department,
			g.Deleted,
			g.CreatedAt,
			g.UpdatedAt,
		}
		query = fmt.Sprintf(pgUpsertGuest, ns)
	)

	err = s.db.QueryRow(query, params...).Scan(&g.ID, &g.CreatedAt)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		err = s.db.QueryRow(query, params...).Scan(&g.ID, &g.CreatedAt)
	}
	if err != nil {
		return nil, err
	}

	g.CreatedAt = g.CreatedAt.UTC()

	return g, nil
}

func (s *pgService) update(ns string, g *Guest) (*Guest, error) {
	now, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	g.UpdatedAt = now

	var (
		params = []interface{}{
			g.ID,
			g.Name,
			g.Email,
			g.Role,
			g.Department,
			g.Deleted,
			g.UpdatedAt,
		}
		query = fmt.Sprintf(pgUpdateGuest, ns)
	)

	_, err = s.db.Exec(query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		_, err = s.db.Exec(query, params...)
	}

	return g, err
}

func (s *pgService) listGuests(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListGuests, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			return s.listGuests(ns, where, params...)
		}

		return nil, err
	}
	defer rows.Close()

	gs := List{}

	for rows.Next() {
		g := &Guest{}

		err := rows.Scan(
			&g.ID,
			&g.EventID,
			&g.Name,
			&g.Email,
			&g.Role,
			&g.Department,
			&g.Deleted,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		g.CreatedAt = g.CreatedAt.UTC()
		g.UpdatedAt = g.UpdatedAt.UTC()

		gs = append(gs, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gs, nil
}

func convertOpts(opts QueryOptions) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if !opts.Before.IsZero() {
		clauses = append(clauses, pgClauseBefore)
		params = append(params, opts.Before.UTC().Format(pg.TimeFormat))
	}

	if opts.Deleted != nil {
		clauses = append(clauses, pgClauseDeleted)
		params = append(params, *opts.Deleted)
	}

	if len(opts.Emails) > 0 {
		ps := []interface{}{}

		for _, e := range opts.Emails {
			ps = append(ps, e)
		}

		clause, _, err := sqlx.In(pgClauseEmails, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.EventIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.EventIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseEventIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.IDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.IDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	where := ""

	if len(clauses) > 0 {
		where = sqlx.Rebind(sqlx.DOLLAR, pg.ClausesToWhere(clauses...))
	}

	where = fmt.Sprintf("%s\n%s", where, pgOrderCreatedAt)

	if opts.Limit > 0 {
		where = fmt.Sprintf("%s\nLIMIT %d", where, opts.Limit)
	}

	return where, params, nil
}
