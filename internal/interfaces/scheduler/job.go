package scheduler

import "context"

// Job is a unit of background work tied to one user. Implementations must
// respect the context for cancellation and timeouts.
type Job interface {
	Execute(ctx context.Context) error

	// UserKey returns the key of the user this job works on behalf of.
	UserKey() string

	// Description returns a human-readable description for logging.
	Description() string
}
