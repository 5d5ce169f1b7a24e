package phoneconfirm_test

import (
	"context"
	"sync"
	"time"

	phoneconfirm "github.com/goliatone/go-phoneconfirm"
)

const (
	testPhone      = "+15551234567"
	testOtherPhone = "+15557654321"
	testSecret     = "test-secret-key"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Trace(message string, args ...any) { l.record("trace", message, args...) }
func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }
func (l *captureLogger) Fatal(message string, args ...any) { l.record("fatal", message, args...) }
func (l *captureLogger) WithContext(context.Context) phoneconfirm.Logger {
	return l
}

func (l *captureLogger) byLevel(level string) []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []logCall{}
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c)
		}
	}
	return out
}

// argValue returns the value following key in a key/value arg list
func argValue(args []any, key string) any {
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok && k == key {
			return args[i+1]
		}
	}
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() phoneconfirm.Config {
	cfg := phoneconfirm.DefaultConfig()
	cfg.SecretKey = testSecret
	return cfg
}

type issuedCapture struct {
	mu     sync.Mutex
	events []phoneconfirm.ConfirmationIssued
}

func (c *issuedCapture) handle(_ context.Context, event phoneconfirm.ConfirmationIssued) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *issuedCapture) last() phoneconfirm.ConfirmationIssued {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return phoneconfirm.ConfirmationIssued{}
	}
	return c.events[len(c.events)-1]
}

type activationCapture struct {
	mu     sync.Mutex
	events []phoneconfirm.ActivationCreated
}

func (c *activationCapture) handle(_ context.Context, event phoneconfirm.ActivationCreated) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *activationCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
