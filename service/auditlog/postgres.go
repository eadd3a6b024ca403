package auditlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/soiree/soiree/platform/flake"
	"github.com/soiree/soiree/platform/pg"
)

const (
	pgInsertEntry = `INSERT INTO
		%s.audit_logs(id, actor_id, action, target_id, target_email, ip, user_agent, meta, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	pgClauseActions   = `action IN (?)`
	pgClauseActorIDs  = `actor_id IN (?)`
	pgClauseBefore    = `created_at < ?`
	pgClauseIDs       = `id IN (?)`
	pgClauseTargetIDs = `target_id IN (?)`

	pgListEntries = `
		SELECT
			id, actor_id, action, target_id, target_email, ip, user_agent, meta, created_at
		FROM
			%s.audit_logs
		%s`

	pgOrderCreatedAt = `ORDER BY created_at DESC`

	pgCreateScheme = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.audit_logs(
		id BIGINT NOT NULL UNIQUE,
		actor_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		target_id BIGINT,
		target_email TEXT,
		ip TEXT,
		user_agent TEXT,
		meta JSONB,
		created_at TIMESTAMP NOT NULL
	)`
	pgDropTable = `DROP TABLE IF EXISTS %s.audit_logs`

	pgIndexActor = `CREATE INDEX %s ON %s.audit_logs (actor_id, created_at DESC)`
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

func (s *pgService) Put(ns string, e *Entry) (*Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	ts, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	e.CreatedAt = ts
	e.UserAgent = truncateUserAgent(e.UserAgent)

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	e.ID = id

	meta, err := marshalMeta(e.Meta)
	if err != nil {
		return nil, err
	}

	var (
		params = []interface{}{
			e.ID,
			e.ActorID,
			e.Action,
			e.TargetID,
			e.TargetEmail,
			e.IP,
			e.UserAgent,
			meta,
			e.CreatedAt,
		}
		query = fmt.Sprintf(pgInsertEntry, ns)
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

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listEntries(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		fmt.Sprintf(pgCreateScheme, ns),
		fmt.Sprintf(pgCreateTable, ns),
		pg.GuardIndex(ns, "audit_logs_actor_created", pgIndexActor),
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

func (s *pgService) listEntries(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListEntries, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			return s.listEntries(ns, where, params...)
		}

		return nil, err
	}
	defer rows.Close()

	es := List{}

	for rows.Next() {
		var (
			e = &Entry{}

			targetID    sql.NullInt64
			targetEmail sql.NullString
			ip          sql.NullString
			userAgent   sql.NullString
			meta        []byte
		)

		err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Action,
			&targetID,
			&targetEmail,
			&ip,
			&userAgent,
			&meta,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		e.TargetID = uint64(targetID.Int64)
		e.TargetEmail = targetEmail.String
		e.IP = ip.String
		e.UserAgent = userAgent.String
		e.CreatedAt = e.CreatedAt.UTC()

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}

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

	if len(opts.Actions) > 0 {
		ps := []interface{}{}

		for _, a := range opts.Actions {
			ps = append(ps, a)
		}

		clause, _, err := sqlx.In(pgClauseActions, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.ActorIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.ActorIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseActorIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if !opts.Before.IsZero() {
		clauses = append(clauses, pgClauseBefore)
		params = append(params, opts.Before.UTC().Format(pg.TimeFormat))
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

	if len(opts.TargetIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.TargetIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseTargetIDs, ps)
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

func marshalMeta(meta map[string]interface{}) (interface{}, error) {
	if meta == nil {
		return nil, nil
	}

	return json.Marshal(meta)
}
