// Package health aggregates liveness of the store, the embedding provider
// and the optional vector index.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the aggregated state.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "ok"
	// Degraded means an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy means the store failed; recommendations cannot be served.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	// CheckOK marks a passing check.
	CheckOK CheckResult = "ok"
	// CheckError marks a failing check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentStore       = "store"
	ComponentEmbedding   = "embedding"
	ComponentVectorIndex = "vector_index"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs health checks.
type Service struct {
	store     Pinger
	embedding ProviderChecker
	index     ProviderChecker
	timeout   time.Duration
	logger    *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c ProviderChecker) Option {
	return func(s *Service) { s.embedding = c }
}

// WithVectorIndex adds the vector index check.
func WithVectorIndex(c ProviderChecker) Option {
	return func(s *Service) { s.index = c }
}

// WithTimeout bounds each check.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New creates a Service. store is required.
func New(store Pinger, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, timeout: defaultCheckTimeout, logger: logger}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Check runs all configured checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]func(context.Context) error{
		ComponentStore: s.store.Ping,
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.embedding.HealthCheck
	}
	if s.index != nil {
		checks[ComponentVectorIndex] = s.index.HealthCheck
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]CheckResult, len(checks))
	)
	for name, fn := range checks {
		wg.Go(func() {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := fn(cctx); err != nil {
				res = CheckError
				s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	status := Healthy
	for name, res := range out {
		if res != CheckError {
			continue
		}
		if name == ComponentStore {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: out}
}
