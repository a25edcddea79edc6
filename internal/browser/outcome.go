package browser

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseSubmitOutcome decodes the JSON document produced by the in-page
// submission script. Two shapes are accepted: an error document
// {"error": "..."} for a fetch that threw inside the page, and a response
// document {"status": N, "ok": bool, "text": "..."}.
func ParseSubmitOutcome(doc string) (SubmitOutcome, error) {
	if !gjson.Valid(doc) {
		return SubmitOutcome{}, fmt.Errorf("unexpected submit result: %q", doc)
	}

	parsed := gjson.Parse(doc)
	if fetchErr := parsed.Get("error"); fetchErr.Exists() {
		return SubmitOutcome{FetchErr: fetchErr.String()}, nil
	}

	status := parsed.Get("status")
	if !status.Exists() {
		return SubmitOutcome{}, fmt.Errorf("unexpected submit result: %q", doc)
	}

	return SubmitOutcome{
		Status: int(status.Int()),
		OK:     parsed.Get("ok").Bool(),
		Body:   parsed.Get("text").String(),
	}, nil
}
