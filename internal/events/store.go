package events

import "context"

// Sink receives published events. Implementations must tolerate concurrent
// appends; delivery order within one publisher is the emission order.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Log is a sink whose history external indexers can read back to
// reconstruct ledger state without replaying the registry.
type Log interface {
	Sink
	List(ctx context.Context) ([]Event, error)
}
