// Package scrapeerr defines the error taxonomy shared by the scrapers,
// store, and orchestrator. Nothing here does I/O; it just gives the rest
// of the module typed errors to wrap and check with errors.Is/errors.As.
package scrapeerr

import "fmt"

// ErrCancelled is raised internally when a workflow observes the cancel
// flag at a loop head. Workflows settle the run as cancelled and then
// return it, and the CLI treats it as a clean exit (status 0).
var ErrCancelled = fmt.Errorf("scrape cancelled by operator")

// ErrJobAlreadyRunning is returned when a workflow launch finds another
// job's progress record still live (running and freshly flushed).
var ErrJobAlreadyRunning = fmt.Errorf("a scrape job is already running")

// Transport wraps a recoverable HTTP failure: a retry-set status code or
// connection error that survived every retry attempt.
type Transport struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Transport) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s returned status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *Transport) Unwrap() error { return e.Err }

// Parse marks a row- or field-level extraction failure that should be
// skipped rather than treated as a crawl failure (e.g. an unparseable
// licitor_id).
type Parse struct {
	Field string
	Input string
	Err   error
}

func (e *Parse) Error() string {
	return fmt.Sprintf("parse %s from %q: %v", e.Field, e.Input, e.Err)
}

func (e *Parse) Unwrap() error { return e.Err }

// MissingField marks a backfill scrape that successfully fetched the page
// but could not locate the one field it was looking for.
type MissingField struct {
	Field string
	URL   string
}

func (e *MissingField) Error() string {
	return fmt.Sprintf("missing field %s at %s", e.Field, e.URL)
}

// StoreIntegrity wraps a constraint violation scoped to a single row; it
// must never poison the rows around it.
type StoreIntegrity struct {
	Op  string
	Err error
}

func (e *StoreIntegrity) Error() string {
	return fmt.Sprintf("store integrity violation during %s: %v", e.Op, e.Err)
}

func (e *StoreIntegrity) Unwrap() error { return e.Err }

// Fatal marks a workflow-ending failure: anything not covered above that
// escapes a workflow body unwinds the workflow and is reported as Fatal.
type Fatal struct {
	Err error
}

func (e *Fatal) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }

func (e *Fatal) Unwrap() error { return e.Err }
