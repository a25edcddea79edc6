package attempt

import "github.com/formdrill/formdrill/internal/browser"

// Dynamic field names appended to every submission.
const (
	FieldTrace = "trace_id"
	FieldNonce = "_nonce"
)

// BuildPayload produces the ordered field set for one submission: the base
// template fields in their original order, then trace_id, then _nonce when a
// nonce was harvested. The base slice is copied, never mutated, so every
// attempt gets its own payload.
func BuildPayload(base []browser.FormField, trace, nonce string) []browser.FormField {
	fields := make([]browser.FormField, 0, len(base)+2)
	fields = append(fields, base...)
	fields = append(fields, browser.FormField{Name: FieldTrace, Value: trace})
	if nonce != "" {
		fields = append(fields, browser.FormField{Name: FieldNonce, Value: nonce})
	}
	return fields
}
