package invitation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/soiree/soiree/platform/flake"
	"github.com/soiree/soiree/platform/pg"
)

const (
	pgUpsertInvitation = `INSERT INTO
		%s.invitations(id, event_id, guest_id, token_hash, status, response, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, guest_id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	pgUpdateInvitation = `
		UPDATE
			%s.invitations
		SET
			token_hash = $2,
			status = $3,
			response = $4,
			sent_at = $5,
			opened_at = $6,
			responded_at = $7,
			updated_at = $8
		WHERE
			id = $1`

	pgClauseBefore      = `created_at < ?`
	pgClauseEventIDs    = `event_id IN (?)`
	pgClauseGuestIDs    = `guest_id IN (?)`
	pgClauseIDs         = `id IN (?)`
	pgClauseStatuses    = `status IN (?)`
	pgClauseTokenHashes = `token_hash IN (?)`

	pgListInvitations = `
		SELECT
			id, event_id, guest_id, token_hash, status, response,
			created_at, updated_at, sent_at, opened_at, responded_at
		FROM
			%s.invitations
		%s`

	pgOrderCreatedAt = `ORDER BY created_at DESC`

	pgCreateScheme = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.invitations(
		id BIGINT NOT NULL UNIQUE,
		event_id BIGINT NOT NULL,
		guest_id BIGINT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		response JSONB,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		sent_at TIMESTAMP,
		opened_at TIMESTAMP,
		responded_at TIMESTAMP,
		UNIQUE(event_id, guest_id)
	)`
	pgDropTable = `DROP TABLE IF EXISTS %s.invitations`
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

func (s *pgService) Put(ns string, i *Invitation) (*Invitation, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}

	if i.ID == 0 {
		return s.upsert(ns, i)
	}

	return s.update(ns, i)
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listInvitations(ns, where, params...)
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

func (s *pgService) upsert(ns string, i *Invitation) (*Invitation, error) {
	ts, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	i.CreatedAt = ts
	i.UpdatedAt = ts

	id, err := flake.NextID(flake.Namespace(ns, entity))
	if err != nil {
		return nil, err
	}

	i.ID = id

	response, err := marshalResponse(i.Response)
	if err != nil {
		return nil, err
	}

	var (
		params = []interface{}{
			i.ID,
			i.EventID,
			i.GuestID,
			i.TokenHash,
			i.Status,
			response,
			i.CreatedAt,
			i.UpdatedAt,
		}
		query = fmt.Sprintf(pgUpsertInvitation, ns)
	)

	err = s.db.QueryRow(query, params...).Scan(&i.ID, &i.CreatedAt)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		err = s.db.QueryRow(query, params...).Scan(&i.ID, &i.CreatedAt)
	}
	if err != nil {
		return nil, err
	}

	i.CreatedAt = i.CreatedAt.UTC()

	return i, nil
}

func (s *pgService) update(ns string, i *Invitation) (*Invitation, error) {
	now, err := time.Parse(pg.TimeFormat, time.Now().UTC().Format(pg.TimeFormat))
	if err != nil {
		return nil, err
	}

	i.UpdatedAt = now

	response, err := marshalResponse(i.Response)
	if err != nil {
		return nil, err
	}

	var (
		params = []interface{}{
			i.ID,
			i.TokenHash,
			i.Status,
			response,
			timeOrNil(i.SentAt),
			timeOrNil(i.OpenedAt),
			timeOrNil(i.RespondedAt),
			i.UpdatedAt,
		}
		query = fmt.Sprintf(pgUpdateInvitation, ns)
	)

	_, err = s.db.Exec(query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return nil, err
		}

		_, err = s.db.Exec(query, params...)
	}

	return i, err
}

func (s *pgService) listInvitations(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListInvitations, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			return s.listInvitations(ns, where, params...)
		}

		return nil, err
	}
	defer rows.Close()

	is := List{}

	for rows.Next() {
		var (
			i = &Invitation{}

			response    []byte
			sentAt      pq.NullTime
			openedAt    pq.NullTime
			respondedAt pq.NullTime
		)

		err := rows.Scan(
			&i.ID,
			&i.EventID,
			&i.GuestID,
			&i.TokenHash,
			&i.Status,
			&response,
			&i.CreatedAt,
			&i.UpdatedAt,
			&sentAt,
			&openedAt,
			&respondedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(response) > 0 {
			r := &Response{}

			if err := json.Unmarshal(response, r); err != nil {
				return nil, err
			}

			i.Response = r
		}

		i.CreatedAt = i.CreatedAt.UTC()
		i.UpdatedAt = i.UpdatedAt.UTC()

		if sentAt.Valid {
			i.SentAt = sentAt.Time.UTC()
		}
		if openedAt.Valid {
			i.OpenedAt = openedAt.Time.UTC()
		}
		if respondedAt.Valid {
			i.RespondedAt = respondedAt.Time.UTC()
		}

		is = append(is, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return is, nil
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

	if len(opts.GuestIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.GuestIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseGuestIDs, ps)
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

	if len(opts.TokenHashes) > 0 {
		ps := []interface{}{}

		for _, h := range opts.TokenHashes {
			ps = append(ps, h)
		}

		clause, _, err := sqlx.In(pgClauseTokenHashes, ps)
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

func marshalResponse(r *Response) (interface{}, error) {
	if r == nil {
		return nil, nil
	}

	return json.Marshal(r)
}

func timeOrNil(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t.UTC()
}
