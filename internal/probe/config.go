package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Backend API root
	Timeout  time.Duration // Per-request timeout
	Workers  int           // Concurrent calls
	Device   string        // Device to probe; first listed device when empty
	ResultID int64         // Result to probe; first listed result when zero
	AlarmID  int64         // Alarm to probe; first listed alarm when zero
	Watch    bool          // Stream the device after the checks
	LogFile  string        // Log file for probe output
	Verbose  bool          // Log every stream message and debug lines
}

// Check is the outcome of one endpoint call.
type Check struct {
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	Status   int           `json:"status"`
	Latency  time.Duration `json:"latency"`
	Bytes    int64         `json:"bytes"`
	Skipped  bool          `json:"skipped,omitempty"`
	Err      error         `json:"-"`
}

// OK reports whether the call succeeded or was skipped.
func (c Check) OK() bool { return c.Skipped || c.Err == nil }

// Report holds the checks of one run in call order.
type Report struct {
	Checks    []Check
	StartTime time.Time
	Duration  time.Duration
}

// Failed returns the number of failed checks.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK() {
			n++
		}
	}
	return n
}

// Skipped returns the number of checks skipped for lack of a target.
func (r *Report) Skipped() int {
	n := 0
	for _, c := range r.Checks {
		if c.Skipped {
			n++
		}
	}
	return n
}
