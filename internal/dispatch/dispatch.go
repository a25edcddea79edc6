// Package dispatch coordinates attempt execution: strictly ordered with
// jittered pacing in sequential mode, or across a bounded worker pool in
// parallel mode. Either way the run covers the full task set {1..N} and the
// returned results are sorted by attempt index.
package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/formdrill/formdrill/internal/attempt"
)

// Pacing spreads, as fractions of the base delay.
const (
	sequentialJitter = 0.3
	parallelJitter   = 0.25
)

// Executor abstracts running a single attempt. Implementations must fold all
// failures into the returned result.
type Executor interface {
	Execute(ctx context.Context, task attempt.Task) attempt.Result
}

// Options configure the Controller.
type Options struct {
	Reps       int
	Parallel   bool
	Workers    int           // pool size, parallel mode only
	Delay      time.Duration // base inter-attempt delay (sequential)
	DelayStart time.Duration // base delay between observed completions (parallel)
	Rate       int           // attempts per second cap (0 means unlimited)
	Executor   Executor      // required
	OnResult   func(attempt.Result) // streamed in completion order
	Logger     zerolog.Logger

	RandomSeed     int64                       // jitter seed; 0 means time-based
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Reps < 1 {
		o.Reps = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.DelayStart < 0 {
		o.DelayStart = 0
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// Controller runs the configured attempts with one of the two strategies.
type Controller struct {
	opt     Options
	jitter  *jitterSource
	limiter *rate.Limiter
}

func New(opt Options) *Controller {
	opt.normalize()
	return &Controller{
		opt:     opt,
		jitter:  newJitterSource(opt.RandomSeed),
		limiter: opt.LimiterFactory(opt.Rate),
	}
}

// Run executes the full task set and returns the results in index order. A
// failed attempt is a recorded result, never an abort; only context
// cancellation stops the run early.
func (c *Controller) Run(ctx context.Context) []attempt.Result {
	if c.opt.Parallel {
		return c.runParallel(ctx)
	}
	return c.runSequential(ctx)
}

func (c *Controller) runSequential(ctx context.Context) []attempt.Result {
	results := make([]attempt.Result, 0, c.opt.Reps)
	for i := 1; i <= c.opt.Reps; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		res := c.opt.Executor.Execute(ctx, attempt.Task{Index: i})
		results = append(results, res)
		if c.opt.OnResult != nil {
			c.opt.OnResult(res)
		}

		if ctx.Err() != nil {
			c.opt.Logger.Debug().Int("completed", len(results)).Msg("run canceled")
			break
		}
		if i < c.opt.Reps {
			sleepCtx(ctx, c.jitter.pace(c.opt.Delay, sequentialJitter))
		}
	}
	return results
}

func (c *Controller) runParallel(ctx context.Context) []attempt.Result {
	tasks := make(chan attempt.Task)
	completions := make(chan attempt.Result, c.opt.Reps)

	var wg sync.WaitGroup
	wg.Add(c.opt.Workers)
	for w := 0; w < c.opt.Workers; w++ {
		go func() {
			defer wg.Done()
			for task := range tasks {
				completions <- c.opt.Executor.Execute(ctx, task)
			}
		}()
	}

	// Feeder: releases tasks into the pool, honoring the optional rate cap.
	go func() {
		defer close(tasks)
		for i := 1; i <= c.opt.Reps; i++ {
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case tasks <- attempt.Task{Index: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(completions)
	}()

	// Completions arrive in arbitrary order; pacing here throttles how fast
	// the dispatcher observes them, not per-worker execution.
	results := make([]attempt.Result, 0, c.opt.Reps)
	for res := range completions {
		results = append(results, res)
		if c.opt.OnResult != nil {
			c.opt.OnResult(res)
		}
		sleepCtx(ctx, c.jitter.pace(c.opt.DelayStart, parallelJitter))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
