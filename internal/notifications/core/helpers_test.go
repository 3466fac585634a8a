package core

import (
	"sync"

	"iapnotify/internal/types"
)

// mockLogger records error messages so tests can assert that side-channel
// failures were logged rather than returned.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *mockLogger) Debug(msg string, args ...any) {}
func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *mockLogger) With(args ...any) types.Logger { return l }
