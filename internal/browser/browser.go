// Package browser defines the narrow capability surface the attempt executor
// consumes from a real browser engine: session lifecycle, navigation with a
// readiness condition, DOM attribute lookup, selector waits, and an in-page
// form submission. The Playwright-backed implementation lives in this package;
// everything above it depends only on the interfaces.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Readiness selects the criterion for considering a navigation complete.
type Readiness string

const (
	// ReadyNetworkIdle waits until network activity has settled.
	ReadyNetworkIdle Readiness = "networkidle"
	// ReadyLoad waits only for the basic load event.
	ReadyLoad Readiness = "load"
)

// ErrSelectorTimeout is returned by WaitForSelector when the selector did not
// appear within the allotted time. Callers treat it as non-fatal.
var ErrSelectorTimeout = errors.New("selector wait timed out")

// NavigationError reports a failed page navigation.
type NavigationError struct {
	URL       string
	Readiness Readiness
	Timeout   bool
	Err       error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s (wait=%s): %v", e.URL, e.Readiness, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// FormField is one (name, value) pair of a form-encoded submission. Names may
// repeat; order is significant and preserved end to end.
type FormField struct {
	Name  string
	Value string
}

// SubmitOutcome is the structured result of an in-page submission. Exactly one
// of the two shapes is populated: a fetch-level error thrown inside the page
// (FetchErr non-empty), or an HTTP response (Status, OK, Body).
type SubmitOutcome struct {
	Status   int
	OK       bool
	Body     string
	FetchErr string
}

// Failed reports whether the submission died inside the page before an HTTP
// response was observed.
func (o SubmitOutcome) Failed() bool { return o.FetchErr != "" }

// Session is one isolated browser session: one browser process, one context,
// one page. A Session is used by exactly one attempt and must be closed on
// every exit path.
type Session interface {
	// Navigate opens the page and blocks until the readiness condition holds
	// or the timeout elapses. Failures are reported as *NavigationError with
	// Timeout set when the deadline was the cause.
	Navigate(ctx context.Context, url string, ready Readiness, timeout time.Duration) error

	// QueryAttribute looks up attribute on the first element matching
	// selector. found is false when the element or attribute is absent;
	// absence is not an error.
	QueryAttribute(selector, attribute string) (value string, found bool, err error)

	// WaitForSelector blocks until selector is present or timeout elapses,
	// returning ErrSelectorTimeout in the latter case.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// Submit performs a single form-encoded POST from inside the page's own
	// execution context, so the request inherits the page origin, cookies and
	// whatever client-side challenge state the engine has established. The
	// call itself only errors when the script could not be evaluated at all;
	// in-page fetch failures come back inside the outcome.
	Submit(ctx context.Context, endpoint string, fields []FormField) (SubmitOutcome, error)

	Close() error
}

// Launcher creates Sessions. Implementations own the underlying engine
// process and release it on Close.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}
