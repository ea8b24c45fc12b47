package devserver

import (
	"sync"
	"time"
)

// Faults is the failure and latency injection applied to API requests.
type Faults struct {
	// FailReads fails the next N GET requests with 503.
	FailReads int `json:"fail_reads"`

	// FailWrites fails the next N POST requests with 503.
	FailWrites int `json:"fail_writes"`

	// Latency delays every API response.
	Latency time.Duration `json:"latency"`
}

type faultInjector struct {
	mu     sync.Mutex
	faults Faults
}

func (f *faultInjector) set(faults Faults) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = faults
}

func (f *faultInjector) get() Faults {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faults
}

// take reports whether this request should fail, consuming one injected
// failure, and returns the latency to apply.
func (f *faultInjector) take(write bool) (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counter := &f.faults.FailReads
	if write {
		counter = &f.faults.FailWrites
	}
	if *counter > 0 {
		*counter--
		return true, f.faults.Latency
	}
	return false, f.faults.Latency
}
