package health

import (
	"context"
	"sync"
)

// Registry holds multiple health checkers.
// Optional checkers are reported but never turn readiness down.
type Registry struct {
	checkers []entry
}

type entry struct {
	checker  Checker
	optional bool
}

// NewRegistry creates a new health check registry of required checkers.
func NewRegistry(checkers ...Checker) *Registry {
	r := &Registry{}
	for _, c := range checkers {
		r.checkers = append(r.checkers, entry{checker: c})
	}
	return r
}

// AddOptional registers a checker whose failure degrades but does not fail readiness.
func (r *Registry) AddOptional(c Checker) *Registry {
	r.checkers = append(r.checkers, entry{checker: c, optional: true})
	return r
}

// CheckResult is the result of a single named check.
type CheckResult struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ReadinessResponse is the aggregated readiness check response.
type ReadinessResponse struct {
	Status Status        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

// CheckAll runs all registered checkers in parallel.
func (r *Registry) CheckAll(ctx context.Context) ReadinessResponse {
	if len(r.checkers) == 0 {
		return ReadinessResponse{Status: StatusUp}
	}

	results := make([]CheckResult, len(r.checkers))
	var wg sync.WaitGroup

	for i, e := range r.checkers {
		wg.Add(1)
		go func(idx int, e entry) {
			defer wg.Done()
			res := e.checker.Check(ctx)
			results[idx] = CheckResult{
				Name:     e.checker.Name(),
				Status:   res.Status,
				Optional: e.optional,
				Message:  res.Message,
			}
		}(i, e)
	}

	wg.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status == StatusDown && !res.Optional {
			overall = StatusDown
			break
		}
	}

	return ReadinessResponse{Status: overall, Checks: results}
}
