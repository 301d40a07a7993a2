package resilience

import "time"

// Circuit breaker defaults
const (
	DefaultMaxRequests           uint32        = 3
	DefaultInterval              time.Duration = 60 * time.Second
	DefaultTimeout               time.Duration = 30 * time.Second
	DefaultFailureThreshold      uint32        = 5
	DefaultFailureRatioThreshold float64       = 0.5
	DefaultMinRequestsToTrip     uint32        = 10
)

// Retry defaults
const (
	DefaultRetryMaxAttempts   int           = 3
	DefaultRetryInitialDelay  time.Duration = 100 * time.Millisecond
	DefaultRetryMaxDelay      time.Duration = 5 * time.Second
	DefaultRetryBackoffFactor float64       = 2.0
)

// Optimistic concurrency retries are short and jittery by nature
const (
	ConcurrencyRetryMaxAttempts  int           = 5
	ConcurrencyRetryInitialDelay time.Duration = 5 * time.Millisecond
	ConcurrencyRetryMaxDelay     time.Duration = 100 * time.Millisecond
)
