package emaillog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/soiree/soiree/platform/flake"
	"github.com/soiree/soiree/platform/pg"
)

const (
	pgInsertEmailLog = `INSERT INTO
		%s.email_logs(id, invitation_id, event_id, guest_id, provider, provider_message_id, status, error, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	pgClauseBefore        = `created_at < ?`
	pgClauseEventIDs      = `event_id IN (?)`
	pgClauseIDs           = `id IN (?)`
	pgClauseInvitationIDs = `invitation_id IN (?)`
	pgClauseStatuses      = `status IN (?)`

	pgListEmailLogs = `
		SELECT
			id, invitation_id, event_id, guest_id, provider, provider_message_id, status, error, created_at
		FROM
			%s.email_logs
		%s`

	pgOrderCreatedAt = `ORDER BY created_at DESC`

	pgCreateScheme = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.email_logs(
		id BIGINT NOT NULL UNIQUE,
		invitation_id BIGINT NOT NULL,
		event_id BIGINT,
		guest_id BIGINT,
		provider TEXT NOT NULL,
		provider_message_id TEXT,
		status TEXT NOT NULL,
		error TEXT,
		created_at TIMESTAMP NOT NULL
	)`
	pgDropTable = `DROP TABLE IF EXISTS %s.email_logs`

	pgIndexEvent      = `CREATE INDEX %s ON %s.email_logs (event_id, created_at DESC)`
	pgIndexInvitation = `CREATE INDEX %s ON %s.email_logs (invitation_id, created_at DESC)`
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

func (s *pgService) Put(ns string, l *EmailLog) (*EmailLog, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	ts, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	l.CreatedAt = ts
	l.Error = truncateError(l.Error)

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	l.ID = id

	var (
		params = []interface{}{
			l.ID,
			l.InvitationID,
			l.EventID,
			l.GuestID,
			l.Provider,
			l.ProviderMessageID,
			l.Status,
			l.Error,
			l.CreatedAt,
		}
		query = fmt.Sprintf(pgInsertEmailLog, ns)
	)

	_, err = s.db.Exec(query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		_, err = s.db.Exec(query, params...)
	}

	return l, err
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listEmailLogs(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		fmt.Sprintf(pgCreateScheme, ns),
		fmt.Sprintf(pgCreateTable, ns),
		pg.GuardIndex(ns, "email_logs_event_created", pgIndexEvent),
		pg.GuardIndex(ns, "email_logs_invitation_created", pgIndexInvitation),
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

func (s *pgService) listEmailLogs(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListEmailLogs, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			return s.listEmailLogs(ns, where, params...)
		}

		return nil, err
	}
	defer rows.Close()

	ls := List{}

	for rows.Next() {
		var (
			l = &EmailLog{}

			providerMessageID sql.NullString
			errText           sql.NullString
		)

		err := rows.Scan(
			&l.ID,
			&l.InvitationID,
			&l.EventID,
			&l.GuestID,
			&l.Provider,
			&providerMessageID,
			&l.Status,
			&errText,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		l.ProviderMessageID = providerMessageID.String
		l.Error = errText.String
		l.CreatedAt = l.CreatedAt.UTC()

		ls = append(ls, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ls, nil
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

	if len(opts.InvitationIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.InvitationIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseInvitationIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.Statuses) > 0 {
		ps := []interface{}{}

		for _, st := range opts.Statuses {
			ps = append(ps, string(st))
		}

		clause, _, err := sqlx.In(pgClauseStatuses, ps)
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
