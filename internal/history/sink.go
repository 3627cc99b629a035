package history

import (
	"context"
	"time"

	"github.com/proxypulse/proxypulse/internal/probe"
)

// Event is one probe outcome destined for an external analytics system.
type Event struct {
	EndpointID   int64        `json:"endpoint_id"`
	EndpointName string       `json:"endpoint_name,omitempty"`
	OccurredAt   time.Time    `json:"occurred_at"`
	Result       probe.Result `json:"result"`
}

// Sink is a destination for probe events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
