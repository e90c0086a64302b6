package webui

import (
	"sync"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

// JobSnapshot is a point-in-time copy of a JobStatus.
type JobSnapshot struct {
	Printing  bool   `json:"printing"`
	LastError string `json:"lastError,omitempty"`
	LastPrint string `json:"lastPrint,omitempty"` // RFC3339
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Progress  int    `json:"progress"` // 0-100
}

// JobStatus tracks the print job started from the web UI.
type JobStatus struct {
	mu   sync.RWMutex
	snap JobSnapshot
}

// Snapshot returns a copy of the current status.
func (s *JobStatus) Snapshot() JobSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// TryStart marks a job as in progress. It reports false when one already is.
func (s *JobStatus) TryStart(width, height int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Printing {
		return false
	}
	s.snap.Printing = true
	s.snap.LastError = ""
	s.snap.Width, s.snap.Height = width, height
	s.snap.Progress = 0
	return true
}

// SetProgress records a status poll.
func (s *JobStatus) SetProgress(st niim.PrintStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Progress = st.Progress2
}

// SetResult records the outcome of a finished job.
func (s *JobStatus) SetResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Printing = false
	s.snap.LastPrint = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		s.snap.LastError = err.Error()
	} else {
		s.snap.LastError = ""
		s.snap.Progress = 100
	}
}
