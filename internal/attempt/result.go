package attempt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/formdrill/formdrill/internal/browser"
)

// Task identifies one attempt. Created by the dispatcher, consumed exactly
// once by one executor invocation.
type Task struct {
	Index int // 1-based
}

// Result is the immutable record of one finished attempt. Status is nil when
// no HTTP response was observed (navigation failure, in-page fetch error,
// unhandled panic).
type Result struct {
	Index     int     `json:"index"`
	Trace     string  `json:"trace"`
	OK        bool    `json:"ok"`
	Status    *int    `json:"http_status"`
	Message   string  `json:"message"`
	Snippet   string  `json:"response_snippet,omitempty"`
	LatencyMs float64 `json:"latency_ms"`

	Latency time.Duration `json:"-"`
}

// StatusLabel renders the recorded status for console output, "-" when absent.
func (r Result) StatusLabel() string {
	if r.Status == nil {
		return "-"
	}
	return strconv.Itoa(*r.Status)
}

// Classify maps a submission outcome onto the success flag, the recorded
// status and the human-readable message. Success is true exactly when the
// HTTP status equals 200; the marker only shades the message, it never
// downgrades the flag.
func Classify(out browser.SubmitOutcome, marker string) (ok bool, status *int, message string) {
	if out.Failed() {
		return false, nil, fmt.Sprintf("Fetch error: %s", out.FetchErr)
	}

	code := out.Status
	if code != 200 {
		return false, &code, fmt.Sprintf("HTTP %d", code)
	}

	// An empty marker is a substring of every body, so it always reports found.
	if strings.Contains(strings.ToLower(out.Body), strings.ToLower(marker)) {
		return true, &code, "HTTP 200 and success marker found."
	}
	return true, &code, "HTTP 200, no success marker found."
}
