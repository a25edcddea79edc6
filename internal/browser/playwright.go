package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// submitScript runs inside the page. The endpoint and field pairs arrive as a
// structured argument, never interpolated into the script text, and the
// result travels back as a single JSON document.
const submitScript = `async (args) => {
    try {
        const fd = new FormData();
        for (const p of args.pairs) {
            fd.append(p.name, p.value);
        }
        const resp = await fetch(args.endpoint, {
            method: "POST",
            body: fd,
            credentials: "same-origin",
            headers: {
                "X-Requested-With": "XMLHttpRequest"
            }
        });
        const text = await resp.text();
        return JSON.stringify({
            status: resp.status,
            ok: resp.ok,
            text: text.slice(0, 2000)
        });
    } catch (e) {
        return JSON.stringify({ error: String(e) });
    }
}`

// LauncherOptions configure a PlaywrightLauncher.
type LauncherOptions struct {
	Headless  bool
	UserAgent string
	Logger    zerolog.Logger
}

// PlaywrightLauncher creates Firefox-backed sessions through the Playwright
// driver. One launcher owns the driver process; each session owns its own
// browser process.
type PlaywrightLauncher struct {
	pw   *playwright.Playwright
	opts LauncherOptions
}

// NewPlaywrightLauncher starts the Playwright driver. The driver and the
// browsers it manages must already be installed (`playwright install firefox`).
func NewPlaywrightLauncher(opts LauncherOptions) (*PlaywrightLauncher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}
	return &PlaywrightLauncher{pw: pw, opts: opts}, nil
}

func (l *PlaywrightLauncher) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := l.pw.Firefox.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(l.opts.UserAgent),
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	l.opts.Logger.Debug().Msg("browser session opened")
	return &playwrightSession{browser: b, page: page, logger: l.opts.Logger}, nil
}

func (l *PlaywrightLauncher) Close() error {
	return l.pw.Stop()
}

type playwrightSession struct {
	browser playwright.Browser
	page    playwright.Page
	logger  zerolog.Logger
}

func (s *playwrightSession) Navigate(ctx context.Context, url string, ready Readiness, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := playwright.WaitUntilStateNetworkidle
	if ready == ReadyLoad {
		state = playwright.WaitUntilStateLoad
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: state,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return &NavigationError{URL: url, Readiness: ready, Timeout: isTimeoutErr(err), Err: err}
	}
	return nil
}

func (s *playwrightSession) QueryAttribute(selector, attribute string) (string, bool, error) {
	el, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", false, fmt.Errorf("query %q: %w", selector, err)
	}
	if el == nil {
		return "", false, nil
	}
	value, err := el.GetAttribute(attribute)
	if err != nil {
		return "", false, fmt.Errorf("attribute %q of %q: %w", attribute, selector, err)
	}
	return value, value != "", nil
}

func (s *playwrightSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeoutErr(err) {
			return ErrSelectorTimeout
		}
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (s *playwrightSession) Submit(ctx context.Context, endpoint string, fields []FormField) (SubmitOutcome, error) {
	if err := ctx.Err(); err != nil {
		return SubmitOutcome{}, err
	}

	pairs := make([]map[string]string, len(fields))
	for i, f := range fields {
		pairs[i] = map[string]string{"name": f.Name, "value": f.Value}
	}

	raw, err := s.page.Evaluate(submitScript, map[string]interface{}{
		"endpoint": endpoint,
		"pairs":    pairs,
	})
	if err != nil {
		return SubmitOutcome{}, fmt.Errorf("evaluate submission: %w", err)
	}

	doc, ok := raw.(string)
	if !ok {
		return SubmitOutcome{}, fmt.Errorf("unexpected submit result: %v", raw)
	}
	return ParseSubmitOutcome(doc)
}

func (s *playwrightSession) Close() error {
	err := s.browser.Close()
	s.logger.Debug().Msg("browser session closed")
	return err
}

// isTimeoutErr detects Playwright's TimeoutError without depending on the
// driver's error formatting.
func isTimeoutErr(err error) bool {
	var perr *playwright.Error
	if errors.As(err, &perr) {
		return perr.Name == "TimeoutError"
	}
	return strings.Contains(err.Error(), "Timeout")
}
