package event

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/soiree/soiree/platform/flake"
	"github.com/soiree/soiree/platform/pg"
)

const (
	pgInsertEvent = `INSERT INTO
		%s.events(id, owner_id, title, location, starts_at, approved, hidden, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	pgUpdateEvent = `
		UPDATE
			%s.events
		SET
			title = $2,
			location = $3,
			starts_at = $4,
			approved = $5,
			hidden = $6,
			updated_at = $7
		WHERE
			id = $1`

	pgClauseApproved = `approved = ?`
	pgClauseBefore   = `created_at < ?`
	pgClauseHidden   = `hidden = ?`
	pgClauseIDs      = `id IN (?)`
	pgClauseOwnerIDs = `owner_id IN (?)`

	pgListEvents = `
		SELECT
			id, owner_id, title, location, starts_at, approved, hidden, created_at, updated_at
		FROM
			%s.events
		%s`

	pgOrderCreatedAt = `ORDER BY created_at DESC`

	pgCreateScheme = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.events(
		id BIGINT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT,
		starts_at TIMESTAMP,
		approved BOOL DEFAULT false,
		hidden BOOL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	pgDropTable = `DROP TABLE IF EXISTS %s.events`

	pgIndexOwner = `CREATE INDEX %s ON %s.events (owner_id)`
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

func (s *pgService) Put(ns string, e *Event) (*Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if e.ID == 0 {
		return s.insert(ns, e)
	}

	return s.update(ns, e)
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listEvents(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		fmt.Sprintf(pgCreateScheme, ns),
		fmt.Sprintf(pgCreateTable, ns),
		pg.GuardIndex(ns, "event_owner", pgIndexOwner),
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

func (s *pgService) insert(ns string, e *Event) (*Event, error) {
	ts, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	e.CreatedAt = ts
	e.UpdatedAt = ts

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	e.ID = id

	var (
		params = []interface{}{
			e.ID,
			e.OwnerID,
			e.Title,
			e.Location,
			timeOrNil(e.StartsAt),
			e.Approved,
			e.Hidden,
			e.CreatedAt,
			e.UpdatedAt,
		}
		query = fmt.Sprintf(pgInsertEvent, ns)
	)

	_, err = s.db.Exec(query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		_, err = s.db.Exec(query, params...)
	}

	return e, err
}

func (s *pgService) update(ns string, e *Event) (*Event, error) {
	now, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	e.UpdatedAt = now

	var (
		params = []interface{}{
			e.ID,
			e.Title,
			e.Location,
			timeOrNil(e.StartsAt),
			e.Approved,
			e.Hidden,
			e.UpdatedAt,
		}
		query = fmt.Sprintf(pgUpdateEvent, ns)
	)

	_, err = s.db.Exec(query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		_, err = s.db.Exec(query, params...)
	}

	return e, err
}

func (s *pgService) listEvents(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListEvents, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			return s.listEvents(ns, where, params...)
		}

		return nil, err
	}
	defer rows.Close()

	es := List{}

	for rows.Next() {
		var (
			e = &Event{}

			location sql.NullString
			startsAt pq.NullTime
		)

		err := rows.Scan(
			&e.ID,
			&e.OwnerID,
			&e.Title,
			&location,
			&startsAt,
			&e.Approved,
			&e.Hidden,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if location.Valid {
			e.Location = location.String
		}
		if startsAt.Valid {
			e.StartsAt = startsAt.Time.UTC()
		}

		e.CreatedAt = e.CreatedAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()

		es = append(es, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return es, nil
}

func convertOpts(opts QueryOptions) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if opts.Approved != nil {
		clauses = append(clauses, pgClauseApproved)
		params = append(params, *opts.Approved)
	}

	if !opts.Before.IsZero() {
		clauses = append(clauses, pgClauseBefore)
		params = append(params, opts.Before.UTC().Format(pg.TimeFormat))
	}

	if opts.Hidden != nil {
		clauses = append(clauses, pgClauseHidden)
		params = append(params, *opts.Hidden)
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

	if len(opts.OwnerIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.OwnerIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseOwnerIDs, ps)
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

func timeOrNil(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(pg.TimeFormat)
}
