package health

import "context"

// ModelChecker reports whether the loaded artifacts are usable.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks prediction cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
