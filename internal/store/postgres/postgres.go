package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/store"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS endpoints(
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			kind TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			scheme TEXT,
			path TEXT,
			interval_seconds BIGINT NOT NULL,
			generation BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS probe_results(
			id BIGSERIAL PRIMARY KEY,
			endpoint_id BIGINT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			ok BOOLEAN NOT NULL,
			status_code INTEGER NULL,
			latency_ms DOUBLE PRECISION NOT NULL,
			error TEXT NULL,
			headers TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_probe_results_endpoint ON probe_results(endpoint_id, id);`,
		`CREATE TABLE IF NOT EXISTS users(
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) SaveEndpoint(ctx context.Context, e *endpoint.Endpoint) error {
	now := time.Now().UTC()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO endpoints(name, kind, host, port, scheme, path, interval_seconds, generation, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
		RETURNING id;`,
		e.Name, string(e.Kind), e.Host, e.Port, e.Scheme, e.Path, int64(e.Interval/time.Second), now, now)
	if err := row.Scan(&e.ID); err != nil {
		return err
	}
	e.Generation = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func (p *DB) UpdateEndpoint(ctx context.Context, e *endpoint.Endpoint) error {
	now := time.Now().UTC()
	row := p.db.QueryRowContext(ctx, `
		UPDATE endpoints
		SET name=$1, kind=$2, host=$3, port=$4, scheme=$5, path=$6, interval_seconds=$7,
			generation=generation+1, updated_at=$8
		WHERE id=$9
		RETURNING generation;`,
		e.Name, string(e.Kind), e.Host, e.Port, e.Scheme, e.Path, int64(e.Interval/time.Second), now, e.ID)
	if err := row.Scan(&e.Generation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	e.UpdatedAt = now
	return nil
}

func (p *DB) GetEndpoint(ctx context.Context, id int64) (endpoint.Endpoint, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, kind, host, port, scheme, path, interval_seconds, generation, created_at, updated_at
		FROM endpoints WHERE id=$1;`, id)
	return scanEndpoint(row)
}

func (p *DB) ListEndpoints(ctx context.Context) ([]endpoint.Endpoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, kind, host, port, scheme, path, interval_seconds, generation, created_at, updated_at
		FROM endpoints ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]endpoint.Endpoint, 0)
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *DB) DeleteEndpoint(ctx context.Context, id int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM endpoints WHERE id=$1;`, id)
	return err
}

func (p *DB) AppendResult(ctx context.Context, endpointID int64, r probe.Result) error {
	var headers any
	if len(r.Headers) > 0 {
		b, err := json.Marshal(r.Headers)
		if err != nil {
			return err
		}
		headers = string(b)
	}
	var status any
	if r.StatusCode != 0 {
		status = r.StatusCode
	}
	var errStr any
	if r.Error != "" {
		errStr = r.Error
	}
	if _, err := p.db.ExecContext(ctx, `
		INSERT INTO probe_results(endpoint_id, ts, ok, status_code, latency_ms, error, headers)
		VALUES($1, $2, $3, $4, $5, $6, $7);`,
		endpointID, r.Timestamp.UTC(), r.OK, status, r.LatencyMS, errStr, headers); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM probe_results
		WHERE endpoint_id=$1 AND id NOT IN (
			SELECT id FROM probe_results WHERE endpoint_id=$1 ORDER BY id DESC LIMIT 100
		);`, endpointID)
	return err
}

func (p *DB) RecentResults(ctx context.Context, endpointID int64, limit int) ([]probe.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT ts, ok, status_code, latency_ms, error, headers
		FROM probe_results WHERE endpoint_id=$1 ORDER BY id DESC LIMIT $2;`, endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanResults(rows)
}

func (p *DB) PurgeResults(ctx context.Context, endpointID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM probe_results WHERE endpoint_id=$1;`, endpointID)
	return err
}

func (p *DB) CreateUser(ctx context.Context, username, passwordHash string) (store.User, error) {
	now := time.Now().UTC()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users(username, password_hash, created_at) VALUES($1, $2, $3) RETURNING id;`,
		username, passwordHash, now)
	var id int64
	if err := row.Scan(&id); err != nil {
		return store.User{}, err
	}
	return store.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (p *DB) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username=$1;`, username)
	var u store.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row rowScanner) (endpoint.Endpoint, error) {
	var e endpoint.Endpoint
	var name, scheme, path sql.NullString
	var interval int64
	err := row.Scan(&e.ID, &name, (*string)(&e.Kind), &e.Host, &e.Port, &scheme, &path,
		&interval, &e.Generation, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return endpoint.Endpoint{}, store.ErrNotFound
		}
		return endpoint.Endpoint{}, err
	}
	e.Name = name.String
	e.Scheme = scheme.String
	e.Path = path.String
	e.Interval = time.Duration(interval) * time.Second
	return e, nil
}

func scanResults(rows *sql.Rows) ([]probe.Result, error) {
	out := make([]probe.Result, 0)
	for rows.Next() {
		var r probe.Result
		var status sql.NullInt64
		var errStr, headers sql.NullString
		if err := rows.Scan(&r.Timestamp, &r.OK, &status, &r.LatencyMS, &errStr, &headers); err != nil {
			return nil, err
		}
		r.StatusCode = int(status.Int64)
		r.Error = errStr.String
		if headers.Valid && headers.String != "" {
			if err := json.Unmarshal([]byte(headers.String), &r.Headers); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
