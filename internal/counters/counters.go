// Package counters holds the process-wide sent/received counter records
// (spec.md §3, §9) and the single-slot conflict hand-off between the
// sender engine and whichever front-end resolves name collisions.
package counters

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Needed is the conflict slot's sentinel "waiting for an answer" value.
const Needed = "NEEDED"

// Decision is a conflict resolution chosen by a user or console prompt.
type Decision string

const (
	Overwrite Decision = "Overwrite"
	KeepBoth  Decision = "KeepBoth"
	Skip      Decision = "Skip"
)

// ConflictInfo describes the file in collision, published to the slot by
// the receiver's DIFF_FILE reply (carried to the sender side, which owns
// the slot) when a UI front-end needs to ask the user.
type ConflictInfo struct {
	Name       string
	RemoteSize uint64
	LocalSize  uint64
}

// Slot is a single hand-off cell: the sender engine writes a pending
// ConflictInfo and polls for a Decision; a UI goroutine observes the
// pending info and writes the Decision back. Exactly one conflict is in
// flight at a time (spec.md §3 "Conflict slot invariant").
type Slot struct {
	mu       sync.Mutex
	pending  *ConflictInfo
	response string // Needed, or a Decision value once answered
}

// Ask publishes info and resets the slot to the waiting state.
func (s *Slot) Ask(info ConflictInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &info
	s.response = Needed
}

// Pending returns the conflict currently awaiting a decision, or nil.
func (s *Slot) Pending() *ConflictInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Answer writes the user's decision; it is a no-op if nothing is pending.
func (s *Slot) Answer(d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.response = string(d)
	}
}

// Poll returns the decision once answered, or ("", false) while waiting.
func (s *Slot) Poll() (Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.response == "" || s.response == Needed {
		return "", false
	}
	d := Decision(s.response)
	s.pending = nil
	s.response = ""
	return d, true
}

// Sent is the sender engine's process-wide counter record. Fields other
// than Canceled and Conflict have a single writer (the sender engine);
// reads from observers are lock-free and may be stale.
type Sent struct {
	BytesSent      uint64
	FailedFiles    uint64
	ProcessedFiles uint64
	Canceled       atomic.Bool
	Conflict       Slot
}

// SentSnapshot is a point-in-time, allocation-free copy for observers.
type SentSnapshot struct {
	BytesSent      uint64
	FailedFiles    uint64
	ProcessedFiles uint64
	Canceled       bool
}

// AddBytesSent accumulates bytes written to the wire, across files until Reset.
func (s *Sent) AddBytesSent(n uint64) { atomic.AddUint64(&s.BytesSent, n) }

// MarkProcessed records a terminal state (success or failure) for one file.
func (s *Sent) MarkProcessed(failed bool) {
	atomic.AddUint64(&s.ProcessedFiles, 1)
	if failed {
		atomic.AddUint64(&s.FailedFiles, 1)
	}
}

// Reset zeroes the counters between batches (spec.md §3 "Lifecycles").
func (s *Sent) Reset() {
	atomic.StoreUint64(&s.BytesSent, 0)
	atomic.StoreUint64(&s.FailedFiles, 0)
	atomic.StoreUint64(&s.ProcessedFiles, 0)
	s.Canceled.Store(false)
}

// Snapshot copies the counters for a UI poll.
func (s *Sent) Snapshot() SentSnapshot {
	return SentSnapshot{
		BytesSent:      atomic.LoadUint64(&s.BytesSent),
		FailedFiles:    atomic.LoadUint64(&s.FailedFiles),
		ProcessedFiles: atomic.LoadUint64(&s.ProcessedFiles),
		Canceled:       s.Canceled.Load(),
	}
}

// Received is the receiver engine's process-wide counter record.
type Received struct {
	ReceivedFiles uint64
	RejectedFiles uint64
	FailedFiles   uint64
	DataReceived  uint64
	Overwrite     atomic.Bool
	InProgress    atomic.Bool
	Canceled      atomic.Bool
}

// ReceivedSnapshot is a point-in-time copy for observers.
type ReceivedSnapshot struct {
	ReceivedFiles uint64
	RejectedFiles uint64
	FailedFiles   uint64
	DataReceived  uint64
	Overwrite     bool
	InProgress    bool
	Canceled      bool
}

// AddDataReceived accumulates bytes written to disk, across files until Reset.
func (r *Received) AddDataReceived(n uint64) { atomic.AddUint64(&r.DataReceived, n) }

// MarkReceived records a completed, successfully-written file.
func (r *Received) MarkReceived() { atomic.AddUint64(&r.ReceivedFiles, 1) }

// MarkRejected records a file the receiver declined to write
// (see DESIGN.md: SAME_COPY counts here too, by deliberate choice).
func (r *Received) MarkRejected() { atomic.AddUint64(&r.RejectedFiles, 1) }

// MarkFailed records a connection that ended in an I/O or protocol error.
func (r *Received) MarkFailed() { atomic.AddUint64(&r.FailedFiles, 1) }

// Reset zeroes the counters between batches.
func (r *Received) Reset() {
	atomic.StoreUint64(&r.ReceivedFiles, 0)
	atomic.StoreUint64(&r.RejectedFiles, 0)
	atomic.StoreUint64(&r.FailedFiles, 0)
	atomic.StoreUint64(&r.DataReceived, 0)
	r.Canceled.Store(false)
}

// Snapshot copies the counters for a UI poll.
func (r *Received) Snapshot() ReceivedSnapshot {
	return ReceivedSnapshot{
		ReceivedFiles: atomic.LoadUint64(&r.ReceivedFiles),
		RejectedFiles: atomic.LoadUint64(&r.RejectedFiles),
		FailedFiles:   atomic.LoadUint64(&r.FailedFiles),
		DataReceived:  atomic.LoadUint64(&r.DataReceived),
		Overwrite:     r.Overwrite.Load(),
		InProgress:    r.InProgress.Load(),
		Canceled:      r.Canceled.Load(),
	}
}

// SpeedPoint is one sample in a rolling transfer-rate history (carried
// over from the teacher's internal/metrics, see DESIGN.md). The GUI shows
// only the latest rate; the retained history is not displayed.
type SpeedPoint struct {
	At    time.Time
	Speed float64 // bytes/second
}

// SpeedTracker derives an instantaneous rate from successive byte totals.
type SpeedTracker struct {
	mu        sync.Mutex
	last      uint64
	lastAt    time.Time
	history   []SpeedPoint
	maxPoints int
}

// NewSpeedTracker creates a tracker retaining at most maxPoints samples.
func NewSpeedTracker(maxPoints int) *SpeedTracker {
	return &SpeedTracker{lastAt: time.Now(), maxPoints: maxPoints}
}

// Sample records a new cumulative byte total and returns the instantaneous
// rate since the previous sample.
func (t *SpeedTracker) Sample(cumulative uint64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	dt := now.Sub(t.lastAt).Seconds()
	if dt <= 0 {
		dt = 1e-6
	}
	rate := float64(cumulative-t.last) / dt
	t.last = cumulative
	t.lastAt = now
	t.history = append(t.history, SpeedPoint{At: now, Speed: rate})
	if len(t.history) > t.maxPoints {
		t.history = t.history[len(t.history)-t.maxPoints:]
	}
	return rate
}

// History returns a copy of the retained speed samples.
func (t *SpeedTracker) History() []SpeedPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpeedPoint(nil), t.history...)
}

// FormatBytes renders a byte count in human units (grounded on
// original_source/fileTransfer.py::report_data_size).
func FormatBytes(n float64) string {
	units := []string{"B", "kB", "MB", "GB", "TB"}
	idx := 0
	for n >= 1024 && idx < len(units)-1 {
		n /= 1024
		idx++
	}
	return fmt.Sprintf("%.2f %s", n, units[idx])
}
