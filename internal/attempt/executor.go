package attempt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/formdrill/formdrill/internal/browser"
	"github.com/formdrill/formdrill/internal/tracing"
)

const (
	// nonceSelector is where the target page exposes its ephemeral token.
	nonceSelector = `input[name="_nonce"]`
	// selectorWait caps the best-effort wait for an optional readiness selector.
	selectorWait = 6 * time.Second
)

// Options carry the per-run configuration snapshot the executor needs.
type Options struct {
	PageURL      string
	EndpointURL  string
	BasePayload  []browser.FormField
	Marker       string
	WaitSelector string
	NavTimeout   time.Duration
}

// Executor drives one full browser session per attempt: open page, harvest
// token, submit in-page, classify. It owns no state across attempts.
type Executor struct {
	opts     Options
	launcher browser.Launcher
	logger   zerolog.Logger
	tracer   trace.Tracer
}

func NewExecutor(opts Options, launcher browser.Launcher, logger zerolog.Logger, tracer trace.Tracer) *Executor {
	return &Executor{opts: opts, launcher: launcher, logger: logger, tracer: tracer}
}

// Execute runs one attempt end to end and always returns a Result; failures
// of any kind are folded into the result, never propagated, so the dispatch
// loop cannot be crashed by a single attempt.
func (e *Executor) Execute(ctx context.Context, task Task) Result {
	start := time.Now()
	res := Result{Index: task.Index, Trace: NewTrace()}

	ctx, span := tracing.StartAttemptSpan(ctx, e.tracer, task.Index, res.Trace)
	e.run(ctx, &res)

	res.Latency = time.Since(start)
	res.LatencyMs = float64(res.Latency) / float64(time.Millisecond)

	var spanErr error
	if !res.OK {
		spanErr = fmt.Errorf("%s", res.Message)
	}
	tracing.EndSpan(span, spanErr,
		attribute.Bool("formdrill.ok", res.OK),
		attribute.String("formdrill.http_status", res.StatusLabel()),
	)
	return res
}

func (e *Executor) run(ctx context.Context, res *Result) {
	logger := e.logger.With().Int("index", res.Index).Str("trace", res.Trace).Logger()

	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Status = nil
			res.Snippet = ""
			res.Message = fmt.Sprintf("Unhandled exception: %v", r)
			logger.Error().Interface("panic", r).Msg("attempt panicked")
		}
	}()

	session, err := e.launcher.NewSession(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("Failed to start browser: %v", err)
		return
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Debug().Err(cerr).Msg("session close failed")
		}
	}()

	if err := session.Navigate(ctx, e.opts.PageURL, browser.ReadyNetworkIdle, e.opts.NavTimeout); err != nil {
		// The weaker readiness retry is only for pages that never settle;
		// anything other than a timeout fails the attempt outright.
		var navErr *browser.NavigationError
		if !errors.As(err, &navErr) || !navErr.Timeout {
			res.Message = fmt.Sprintf("Failed to load page: %v", err)
			return
		}
		logger.Debug().Err(err).Msg("navigation with settled network timed out, retrying with load event")
		if err := session.Navigate(ctx, e.opts.PageURL, browser.ReadyLoad, e.opts.NavTimeout); err != nil {
			res.Message = fmt.Sprintf("Failed to load page: %v", err)
			return
		}
	}

	// Ephemeral token harvest is best-effort; the page simply may not carry one.
	nonce := ""
	if value, found, err := session.QueryAttribute(nonceSelector, "value"); err != nil {
		logger.Debug().Err(err).Msg("nonce lookup failed")
	} else if found {
		nonce = value
		logger.Debug().Msg("nonce harvested")
	}

	if e.opts.WaitSelector != "" {
		if err := session.WaitForSelector(ctx, e.opts.WaitSelector, selectorWait); err != nil {
			// A missing readiness selector is not fatal to the attempt.
			logger.Debug().Err(err).Str("selector", e.opts.WaitSelector).Msg("readiness selector miss")
		}
	}

	payload := BuildPayload(e.opts.BasePayload, res.Trace, nonce)
	endpoint := e.opts.EndpointURL + "?trace_id=" + url.QueryEscape(res.Trace)

	out, err := session.Submit(ctx, endpoint, payload)
	if err != nil {
		res.Message = fmt.Sprintf("Unhandled exception: %v", err)
		return
	}

	if !out.Failed() {
		res.Snippet = out.Body
	}
	res.OK, res.Status, res.Message = Classify(out, e.opts.Marker)
}
