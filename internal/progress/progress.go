// Package progress is the cross-process view of a running job: a JSON
// file updated via write-to-temp-then-rename so a concurrent reader never
// observes a half-written file, and a sibling flag file whose mere
// existence asks the running job to stop at its next loop head. The file
// pair is the only contract shared with the monitoring UI.
package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Status is the sticky terminal state a Snapshot settles into.
type Status string

const (
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Snapshot is the full JSON shape written to the progress file.
type Snapshot struct {
	JobType      string  `json:"job_type"`
	Status       Status  `json:"status"`
	PID          int     `json:"pid"`
	StartedAt    string  `json:"started_at"`
	LastFlushTS  string  `json:"last_flush_ts"`
	Total        int     `json:"total"`
	Processed    int     `json:"processed"`
	Updated      int     `json:"updated"`
	Errors       int     `json:"errors"`
	NotFound     int     `json:"not_found"`
	Remaining    int     `json:"remaining"`
	ProgressPct  float64 `json:"progress_pct"`
	CurrentItem  string  `json:"current_item"`
	Phase        string  `json:"phase"`
	PhaseNumber  int     `json:"phase_number"`
	PhaseTotal   int     `json:"phase_total"`
	ErrorMessage string  `json:"error_message,omitempty"`

	// DERIVED FROM PROCESSED/ELAPSED AT FLUSH TIME
	ItemsPerMinute float64 `json:"items_per_minute"`
	ETASeconds     float64 `json:"eta_seconds"`
}

// Writer owns one progress/cancel file pair for the duration of a single
// workflow run.
type Writer struct {
	progressPath string
	cancelPath   string

	jobType   string
	total     int
	startedAt time.Time

	processed   int
	updated     int
	errors      int
	notFound    int
	currentItem string

	phase       string
	phaseNumber int
	phaseTotal  int

	terminal bool
}

// New clears any stale cancel flag and writes the initial running
// snapshot synchronously, so an observer sees the job before its first
// item completes.
func New(dataPath, jobType string, total int) (*Writer, error) {
	w := &Writer{
		progressPath: filepath.Join(dataPath, "scrape_progress.json"),
		cancelPath:   filepath.Join(dataPath, "scrape_cancel.flag"),
		jobType:      jobType,
		total:        total,
		startedAt:    time.Now(),
		phase:        "Initialisation",
		phaseNumber:  1,
		phaseTotal:   1,
	}
	if err := w.clearCancelFlag(); err != nil {
		return nil, err
	}
	if err := w.flush(StatusRunning, ""); err != nil {
		return nil, err
	}
	return w, nil
}

// SetPhase labels the current phase of a multi-phase workflow like Full,
// e.g. SetPhase("detail_backfill", 3, 5), and flushes immediately so an
// observer sees the transition even before the phase's first tick.
func (w *Writer) SetPhase(name string, number, total int) {
	if w.terminal {
		return
	}
	w.phase = name
	w.phaseNumber = number
	w.phaseTotal = total
	_ = w.flush(StatusRunning, "")
}

// AddTotal grows the expected item count once a phase has discovered its
// backlog — workflows open with total=0 and add each phase's work as the
// store query or index walk reveals it.
func (w *Writer) AddTotal(n int) {
	if w.terminal || n <= 0 {
		return
	}
	w.total += n
	_ = w.flush(StatusRunning, "")
}

// Tick records one processed item and flushes immediately — every
// iteration of a scrape loop calls this once. A call arriving after a
// terminal transition (Finish/Cancel/Abort) is ignored; terminal states
// are sticky.
func (w *Writer) Tick(updated, isError, notFound bool, currentItem string) error {
	if w.terminal {
		return nil
	}
	w.processed++
	if updated {
		w.updated++
	}
	if isError {
		w.errors++
	}
	if notFound {
		w.notFound++
	}
	w.currentItem = currentItem
	return w.flush(StatusRunning, "")
}

func (w *Writer) Finish() error          { return w.terminalFlush(StatusFinished, "") }
func (w *Writer) Cancel() error          { return w.terminalFlush(StatusCancelled, "") }
func (w *Writer) Abort(msg string) error { return w.terminalFlush(StatusError, msg) }

// terminalFlush performs a terminal status transition and latches
// w.terminal so subsequent Tick/SetPhase/terminalFlush calls are no-ops;
// terminal transitions are idempotent.
func (w *Writer) terminalFlush(status Status, errMsg string) error {
	if w.terminal {
		return nil
	}
	w.terminal = true
	return w.flush(status, errMsg)
}

// flush computes the derived fields (remaining, progress_pct, speed) and
// atomically replaces the progress file: write to a sibling .tmp file,
// then os.Rename onto the real path so a reader never sees a partial
// write.
func (w *Writer) flush(status Status, errMsg string) error {
	remaining := w.total - w.processed
	if remaining < 0 {
		remaining = 0
	}
	pct := 0.0
	if w.total > 0 {
		pct = float64(w.processed) / float64(w.total) * 100
	}

	speed, eta := 0.0, 0.0
	if elapsed := time.Since(w.startedAt).Seconds(); elapsed > 0 && w.processed > 0 {
		speed = float64(w.processed) / elapsed * 60
		eta = float64(remaining) * elapsed / float64(w.processed)
	}

	snap := Snapshot{
		JobType:      w.jobType,
		Status:       status,
		PID:          os.Getpid(),
		StartedAt:    w.startedAt.UTC().Format(time.RFC3339),
		LastFlushTS:  time.Now().UTC().Format(time.RFC3339),
		Total:        w.total,
		Processed:    w.processed,
		Updated:      w.updated,
		Errors:       w.errors,
		NotFound:     w.notFound,
		Remaining:    remaining,
		ProgressPct:  pct,
		CurrentItem:  w.currentItem,
		Phase:        w.phase,
		PhaseNumber:  w.phaseNumber,
		PhaseTotal:   w.phaseTotal,
		ErrorMessage: errMsg,

		ItemsPerMinute: speed,
		ETASeconds:     eta,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := w.progressPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, w.progressPath)
}

func (w *Writer) clearCancelFlag() error {
	err := os.Remove(w.cancelPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RequestCancel creates the cancel flag file; a running workflow observes
// it at its next loop head.
func RequestCancel(dataPath string) error {
	return os.WriteFile(filepath.Join(dataPath, "scrape_cancel.flag"), nil, 0644)
}

// IsCancelRequested reports whether the cancel flag file currently
// exists.
func IsCancelRequested(dataPath string) bool {
	_, err := os.Stat(filepath.Join(dataPath, "scrape_cancel.flag"))
	return err == nil
}

// ClearCancelFlag removes the cancel flag file, ignoring a missing file.
// A workflow calls this on the way out regardless of outcome, so a flag
// written too late to be observed doesn't poison the next run.
func ClearCancelFlag(dataPath string) error {
	err := os.Remove(filepath.Join(dataPath, "scrape_cancel.flag"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MarkError rewrites the stored snapshot as a terminal error in place —
// used by an observer that finds a running record gone stale ("thread
// died") rather than by the worker itself.
func MarkError(dataPath, msg string) error {
	snap, err := Read(dataPath)
	if err != nil {
		return err
	}
	snap.Status = StatusError
	snap.ErrorMessage = msg
	snap.LastFlushTS = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(dataPath, "scrape_progress.json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// Read loads the current snapshot from disk.
func Read(dataPath string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dataPath, "scrape_progress.json"))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Clear removes both the progress and cancel files.
func Clear(dataPath string) error {
	for _, name := range []string{"scrape_progress.json", "scrape_cancel.flag"} {
		if err := os.Remove(filepath.Join(dataPath, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// IsJobRunning reports whether the stored snapshot is status=running and
// was flushed within staleTimeout. A crashed worker's last snapshot goes
// stale and is no longer considered running, so the record can't claim a
// live job indefinitely.
func IsJobRunning(dataPath string, staleTimeout time.Duration) bool {
	snap, err := Read(dataPath)
	if err != nil || snap.Status != StatusRunning {
		return false
	}
	lastFlush, err := time.Parse(time.RFC3339, snap.LastFlushTS)
	if err != nil {
		return false
	}
	return time.Since(lastFlush) < staleTimeout
}
