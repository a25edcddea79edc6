// Package output renders run headers, per-attempt lines and the final
// report in plain-text or JSON form.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formdrill/formdrill/internal/attempt"
	"github.com/formdrill/formdrill/internal/metrics"
)

const snippetDisplayLimit = 300

// Summary counts attempt outcomes.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize tallies success and failure counts over a result set.
func Summarize(results []attempt.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.OK {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// RunInfo describes the run parameters echoed in the header.
type RunInfo struct {
	RunID    string
	PageURL  string
	Reps     int
	Parallel bool
	Workers  int
	Delay    time.Duration
	Headless bool
}

// PrintHeader outputs the run banner before any attempt starts.
func PrintHeader(w io.Writer, info RunInfo) {
	fmt.Fprintf(w, "Run %s\n", info.RunID)
	fmt.Fprintf(w, "Target: %s\n", info.PageURL)
	mode := "sequential"
	if info.Parallel {
		mode = fmt.Sprintf("parallel (workers=%d)", info.Workers)
	}
	fmt.Fprintf(w, "Attempts: %d, mode: %s, delay: %s, headless: %t\n\n",
		info.Reps, mode, info.Delay, info.Headless)
}

// PrintSequentialStart announces the next attempt in sequential mode.
func PrintSequentialStart(w io.Writer, index, total int) {
	fmt.Fprintf(w, "[SEQ] Attempt %d/%d ...\n", index, total)
}

// PrintParallelStart announces the dispatch of the whole batch in
// parallel mode.
func PrintParallelStart(w io.Writer, total, workers int) {
	fmt.Fprintf(w, "[PAR] Dispatching %d attempts across %d workers ...\n", total, workers)
}

// PrintAttemptLine outputs a single attempt's outcome as it completes.
func PrintAttemptLine(w io.Writer, res attempt.Result) {
	tag := "[ERROR]"
	if res.OK {
		tag = "[OK]"
	}
	fmt.Fprintf(w, "%s idx=%d http=%s trace=%s msg=%s\n",
		tag, res.Index, res.StatusLabel(), res.Trace, res.Message)
	if res.Snippet != "" {
		fmt.Fprintf(w, "  snippet: %s\n", snippetForDisplay(res.Snippet))
	}
}

// PrintReport outputs the human-readable final report.
func PrintReport(w io.Writer, results []attempt.Result, stats metrics.Stats) {
	s := Summarize(results)
	fmt.Fprintln(w, "\n=== FINAL SUMMARY ===")
	fmt.Fprintf(w, "Total Attempts:    %d\n", s.Total)
	fmt.Fprintf(w, "Succeeded:         %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failed)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Attempts/sec:      %.2f\n", stats.AttemptsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.StatusCounts) > 0 {
		fmt.Fprintln(w, "\nHTTP Status:")
		codes := make([]string, 0, len(stats.StatusCounts))
		for code := range stats.StatusCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", code, stats.StatusCounts[code])
		}
	}

	if len(results) > 0 {
		fmt.Fprintln(w, "\nAttempts:")
		for _, r := range results {
			fmt.Fprintf(w, "  #%d ok=%t http=%s trace=%s msg=%s\n",
				r.Index, r.OK, r.StatusLabel(), r.Trace, r.Message)
		}
	}
}

type jsonReport struct {
	RunID   string           `json:"run_id"`
	Summary Summary          `json:"summary"`
	Stats   metrics.Stats    `json:"stats"`
	Results []attempt.Result `json:"results"`
}

// PrintJSONReport outputs the full run as a single JSON document.
func PrintJSONReport(w io.Writer, runID string, results []attempt.Result, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		RunID:   runID,
		Summary: Summarize(results),
		Stats:   stats,
		Results: results,
	})
}

func snippetForDisplay(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if len(s) > snippetDisplayLimit {
		cut := snippetDisplayLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
