package store

import (
	"context"
	"errors"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/probe"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// User is an API account able to mutate the endpoint registry.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists the endpoint registry, probe results (pruned to the same
// 100-entry cap the in-memory history keeps), and API users. Implementations
// must be safe for concurrent use.
type Store interface {
	EnsureSchema(ctx context.Context) error

	// Endpoint registry. SaveEndpoint assigns e.ID; UpdateEndpoint bumps
	// e.Generation and UpdatedAt on the passed value to match the row.
	SaveEndpoint(ctx context.Context, e *endpoint.Endpoint) error
	UpdateEndpoint(ctx context.Context, e *endpoint.Endpoint) error
	GetEndpoint(ctx context.Context, id int64) (endpoint.Endpoint, error)
	ListEndpoints(ctx context.Context) ([]endpoint.Endpoint, error)
	DeleteEndpoint(ctx context.Context, id int64) error

	// Probe results in insertion order.
	AppendResult(ctx context.Context, endpointID int64, r probe.Result) error
	RecentResults(ctx context.Context, endpointID int64, limit int) ([]probe.Result, error)
	PurgeResults(ctx context.Context, endpointID int64) error

	// API users.
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	Close() error
}
