package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// The DSN is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS endpoints(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			kind TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			scheme TEXT,
			path TEXT,
			interval_seconds INTEGER NOT NULL,
			generation INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS probe_results(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint_id INTEGER NOT NULL,
			ts TIMESTAMP NOT NULL,
			ok BOOLEAN NOT NULL,
			status_code INTEGER NULL,
			latency_ms REAL NOT NULL,
			error TEXT NULL,
			headers TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_probe_results_endpoint ON probe_results(endpoint_id, id);`,
		`CREATE TABLE IF NOT EXISTS users(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) SaveEndpoint(ctx context.Context, e *endpoint.Endpoint) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO endpoints(name, kind, host, port, scheme, path, interval_seconds, generation, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, 1, ?, ?);`,
		e.Name, string(e.Kind), e.Host, e.Port, e.Scheme, e.Path, int64(e.Interval/time.Second), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	e.Generation = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func (s *DB) UpdateEndpoint(ctx context.Context, e *endpoint.Endpoint) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE endpoints
		SET name=?, kind=?, host=?, port=?, scheme=?, path=?, interval_seconds=?,
			generation=generation+1, updated_at=?
		WHERE id=?;`,
		e.Name, string(e.Kind), e.Host, e.Port, e.Scheme, e.Path, int64(e.Interval/time.Second), now, e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT generation FROM endpoints WHERE id=?;`, e.ID)
	if err := row.Scan(&e.Generation); err != nil {
		return err
	}
	e.UpdatedAt = now
	return nil
}

func (s *DB) GetEndpoint(ctx context.Context, id int64) (endpoint.Endpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, host, port, scheme, path, interval_seconds, generation, created_at, updated_at
		FROM endpoints WHERE id=?;`, id)
	return scanEndpoint(row)
}

func (s *DB) ListEndpoints(ctx context.Context) ([]endpoint.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func (s *DB) DeleteEndpoint(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE id=?;`, id)
	return err
}

func (s *DB) AppendResult(ctx context.Context, endpointID int64, r probe.Result) error {
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
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO probe_results(endpoint_id, ts, ok, status_code, latency_ms, error, headers)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		endpointID, r.Timestamp.UTC(), r.OK, status, r.LatencyMS, errStr, headers); err != nil {
		return err
	}
	// prune older results, keep the last 100 per endpoint
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM probe_results WHERE id IN (
			SELECT id FROM probe_results WHERE endpoint_id=? ORDER BY id DESC LIMIT -1 OFFSET 100
		);`, endpointID)
	return err
}

func (s *DB) RecentResults(ctx context.Context, endpointID int64, limit int) ([]probe.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, ok, status_code, latency_ms, error, headers
		FROM probe_results WHERE endpoint_id=? ORDER BY id DESC LIMIT ?;`, endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanResults(rows)
}

func (s *DB) PurgeResults(ctx context.Context, endpointID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM probe_results WHERE endpoint_id=?;`, endpointID)
	return err
}

func (s *DB) CreateUser(ctx context.Context, username, passwordHash string) (store.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users(username, password_hash, created_at) VALUES(?, ?, ?);`,
		username, passwordHash, now)
	if err != nil {
		return store.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.User{}, err
	}
	return store.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *DB) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username=?;`, username)
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
