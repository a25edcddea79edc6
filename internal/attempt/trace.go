// Package attempt implements the unit of work of a run: one browser-backed
// drive-submit-classify cycle against the target, identified by a 1-based
// index and a correlation trace id.
package attempt

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// tracePrefix tags every trace id with the run type so server-side log
// filters can separate tool traffic from organic traffic.
const tracePrefix = "cli-"

// NewTrace returns a fresh per-attempt trace identifier. Generation is
// stateless, so concurrent workers never coordinate, and collisions are
// negligible across and between runs.
func NewTrace() string {
	return tracePrefix + uuid.NewString()
}

// NewRunID returns an identifier for a whole run, attached to the report
// header, log lines and spans so server-side entries group per invocation.
func NewRunID() string {
	return ulid.Make().String()
}
