package attempt_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/formdrill/formdrill/internal/attempt"
	"github.com/formdrill/formdrill/internal/browser"
)

type fakeSession struct {
	navErrs      map[browser.Readiness]error
	nonce        string
	selectorErr  error
	submitOut    browser.SubmitOutcome
	submitErr    error
	submitPanic  bool
	closed       bool
	gotEndpoint  string
	gotFields    []browser.FormField
	gotReadiness []browser.Readiness
}

func (s *fakeSession) Navigate(_ context.Context, _ string, ready browser.Readiness, _ time.Duration) error {
	s.gotReadiness = append(s.gotReadiness, ready)
	return s.navErrs[ready]
}

func (s *fakeSession) QueryAttribute(_, _ string) (string, bool, error) {
	return s.nonce, s.nonce != "", nil
}

func (s *fakeSession) WaitForSelector(_ context.Context, _ string, _ time.Duration) error {
	return s.selectorErr
}

func (s *fakeSession) Submit(_ context.Context, endpoint string, fields []browser.FormField) (browser.SubmitOutcome, error) {
	if s.submitPanic {
		panic("evaluate blew up")
	}
	s.gotEndpoint = endpoint
	s.gotFields = fields
	return s.submitOut, s.submitErr
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeLauncher struct {
	session *fakeSession
	err     error
}

func (l *fakeLauncher) NewSession(context.Context) (browser.Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func (l *fakeLauncher) Close() error { return nil }

func newTestExecutor(launcher browser.Launcher) *attempt.Executor {
	return attempt.NewExecutor(attempt.Options{
		PageURL:     "https://staging.example.com/form",
		EndpointURL: "https://staging.example.com/submit",
		BasePayload: []browser.FormField{{Name: "screen", Value: "submit"}},
		Marker:      "thank you",
		NavTimeout:  30 * time.Second,
	}, launcher, zerolog.Nop(), nil)
}

func TestExecuteSuccess(t *testing.T) {
	session := &fakeSession{
		nonce:     "tok-9",
		submitOut: browser.SubmitOutcome{Status: 200, OK: true, Body: "Thank you!"},
	}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 3})

	if !res.OK {
		t.Fatalf("OK = false, want true (msg=%q)", res.Message)
	}
	if res.Index != 3 {
		t.Errorf("Index = %d, want 3", res.Index)
	}
	if res.Message != "HTTP 200 and success marker found." {
		t.Errorf("Message = %q", res.Message)
	}
	if res.Snippet != "Thank you!" {
		t.Errorf("Snippet = %q, want body", res.Snippet)
	}
	if !session.closed {
		t.Error("session not closed")
	}
	if !strings.Contains(session.gotEndpoint, "?trace_id=cli-") {
		t.Errorf("endpoint = %q, want trace_id query param", session.gotEndpoint)
	}

	var names []string
	for _, f := range session.gotFields {
		names = append(names, f.Name)
	}
	joined := strings.Join(names, ",")
	if joined != "screen,trace_id,_nonce" {
		t.Errorf("submitted fields = %s, want screen,trace_id,_nonce", joined)
	}
}

func TestExecuteNavigationTimeoutFallback(t *testing.T) {
	session := &fakeSession{
		navErrs: map[browser.Readiness]error{
			browser.ReadyNetworkIdle: &browser.NavigationError{
				URL:       "https://staging.example.com/form",
				Readiness: browser.ReadyNetworkIdle,
				Timeout:   true,
				Err:       errors.New("deadline exceeded"),
			},
		},
		submitOut: browser.SubmitOutcome{Status: 200, OK: true, Body: "ok"},
	}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if !res.OK {
		t.Fatalf("OK = false after fallback, msg=%q", res.Message)
	}
	want := []browser.Readiness{browser.ReadyNetworkIdle, browser.ReadyLoad}
	if len(session.gotReadiness) != 2 || session.gotReadiness[0] != want[0] || session.gotReadiness[1] != want[1] {
		t.Errorf("readiness sequence = %v, want %v", session.gotReadiness, want)
	}
}

func TestExecuteNonTimeoutNavigationNotRetried(t *testing.T) {
	session := &fakeSession{
		navErrs: map[browser.Readiness]error{
			browser.ReadyNetworkIdle: &browser.NavigationError{
				URL:       "https://staging.example.com/form",
				Readiness: browser.ReadyNetworkIdle,
				Err:       errors.New("connection refused"),
			},
		},
		submitOut: browser.SubmitOutcome{Status: 200, OK: true, Body: "ok"},
	}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if res.OK {
		t.Fatal("OK = true, want false")
	}
	if !strings.HasPrefix(res.Message, "Failed to load page:") {
		t.Errorf("Message = %q, want load failure", res.Message)
	}
	if len(session.gotReadiness) != 1 || session.gotReadiness[0] != browser.ReadyNetworkIdle {
		t.Errorf("readiness sequence = %v, want single networkidle attempt", session.gotReadiness)
	}
	if session.gotEndpoint != "" {
		t.Error("submission ran despite navigation failure")
	}
}

func TestExecuteNavigationFailureSkipsSubmission(t *testing.T) {
	session := &fakeSession{
		navErrs: map[browser.Readiness]error{
			browser.ReadyNetworkIdle: &browser.NavigationError{Readiness: browser.ReadyNetworkIdle, Timeout: true, Err: errors.New("deadline exceeded")},
			browser.ReadyLoad:        &browser.NavigationError{Readiness: browser.ReadyLoad, Timeout: true, Err: errors.New("deadline exceeded")},
		},
	}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if res.OK {
		t.Fatal("OK = true, want false")
	}
	if !strings.HasPrefix(res.Message, "Failed to load page:") {
		t.Errorf("Message = %q, want load failure", res.Message)
	}
	if res.Status != nil {
		t.Errorf("Status = %d, want nil", *res.Status)
	}
	if res.Snippet != "" {
		t.Errorf("Snippet = %q, want empty", res.Snippet)
	}
	if session.gotEndpoint != "" {
		t.Error("submission ran despite navigation failure")
	}
	if !session.closed {
		t.Error("session not closed")
	}
}

func TestExecuteLauncherFailure(t *testing.T) {
	exec := newTestExecutor(&fakeLauncher{err: errors.New("driver missing")})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if res.OK {
		t.Fatal("OK = true, want false")
	}
	if !strings.HasPrefix(res.Message, "Failed to start browser:") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	session := &fakeSession{submitPanic: true}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if res.OK {
		t.Fatal("OK = true, want false")
	}
	if !strings.HasPrefix(res.Message, "Unhandled exception:") {
		t.Errorf("Message = %q, want unhandled exception", res.Message)
	}
	if !session.closed {
		t.Error("session not closed after panic")
	}
}

func TestExecuteFetchError(t *testing.T) {
	session := &fakeSession{
		submitOut: browser.SubmitOutcome{FetchErr: "TypeError: NetworkError"},
	}
	exec := newTestExecutor(&fakeLauncher{session: session})

	res := exec.Execute(context.Background(), attempt.Task{Index: 1})

	if res.OK {
		t.Fatal("OK = true, want false")
	}
	if res.Message != "Fetch error: TypeError: NetworkError" {
		t.Errorf("Message = %q", res.Message)
	}
	if res.Snippet != "" {
		t.Errorf("Snippet = %q, want empty on fetch error", res.Snippet)
	}
}
