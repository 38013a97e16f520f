package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the shared cache is down; requests still reach the geocoder.
	Degraded Status = "degraded"
	// Unhealthy indicates the geocoder is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentGeocoder = "geocoder"
	ComponentCache    = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	geocoder GeocoderChecker
	cache    CachePinger
}

// New creates a Service. cache can be nil when no shared cache is configured.
func New(geocoder GeocoderChecker, cache CachePinger) *Service {
	return &Service{geocoder: geocoder, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.geocoder.HealthCheck(ctx); err != nil {
		checks[ComponentGeocoder] = CheckError
	} else {
		checks[ComponentGeocoder] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks[ComponentCache] = CheckError
		} else {
			checks[ComponentCache] = CheckOK
		}
	}

	status := Healthy
	switch {
	case checks[ComponentGeocoder] == CheckError:
		status = Unhealthy
	case checks[ComponentCache] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
