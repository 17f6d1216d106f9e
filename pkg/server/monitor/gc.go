package monitor

import (
	"sync"
	"time"
)

// MaxConsecutiveErrors is the failure streak after which a task is unhealthy
const MaxConsecutiveErrors = 3

// TaskMonitor tracks the health of a periodic background task such as
// value-log garbage collection.
type TaskMonitor struct {
	mu                sync.RWMutex
	lastSuccess       time.Time
	lastAttempt       time.Time
	runs              int
	consecutiveErrors int
	lastError         string
}

// TaskStatus is reported on the health endpoint.
type TaskStatus struct {
	Healthy           bool   `json:"healthy"`
	Runs              int    `json:"runs"`
	LastSuccess       string `json:"last_success,omitempty"`
	LastAttempt       string `json:"last_attempt,omitempty"`
	ConsecutiveErrors int    `json:"consecutive_errors,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

func (tm *TaskMonitor) RecordSuccess() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	now := time.Now()
	tm.lastSuccess = now
	tm.lastAttempt = now
	tm.runs++
	tm.consecutiveErrors = 0
	tm.lastError = ""
}

func (tm *TaskMonitor) RecordFailure(err error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.lastAttempt = time.Now()
	tm.runs++
	tm.consecutiveErrors++
	if err != nil {
		tm.lastError = err.Error()
	}
}

// IsHealthy is false only after more than MaxConsecutiveErrors failures in
// a row. A task that has not run yet is healthy.
func (tm *TaskMonitor) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.healthy()
}

func (tm *TaskMonitor) healthy() bool {
	return tm.consecutiveErrors <= MaxConsecutiveErrors
}

func (tm *TaskMonitor) Status() TaskStatus {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	status := TaskStatus{
		Healthy: tm.healthy(),
		Runs:    tm.runs,
	}
	if !tm.lastSuccess.IsZero() {
		status.LastSuccess = tm.lastSuccess.Format(time.RFC3339)
	}
	if !tm.lastAttempt.IsZero() {
		status.LastAttempt = tm.lastAttempt.Format(time.RFC3339)
	}
	if tm.consecutiveErrors > 0 {
		status.ConsecutiveErrors = tm.consecutiveErrors
		status.LastError = tm.lastError
	}
	return status
}
