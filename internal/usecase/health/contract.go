package health

import "context"

// Pinger reports whether a backing component answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker reports whether an external provider answers.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
