package testhelper

import (
	"fmt"
	"sync"

	"github.com/p4market/catalogdb/internal/logger"
)

// LogEntry represents a log entry with its message and fields
type LogEntry struct {
	Message string
	Fields  map[string]interface{}
}

// logSink is shared by a TestLogger and every logger derived from it with
// WithFields, so entries written through a child are visible on the parent.
type logSink struct {
	mu            sync.RWMutex
	infoMessages  []LogEntry
	errorMessages []LogEntry
	warnMessages  []LogEntry
	debugMessages []LogEntry
	debugEnabled  bool
}

// TestLogger provides a logger implementation for testing with debug capabilities
type TestLogger struct {
	sink   *logSink
	fields map[string]interface{}
}

// NewTestLogger creates a new test logger instance
func NewTestLogger(debugEnabled bool) *TestLogger {
	return &TestLogger{
		sink:   &logSink{debugEnabled: debugEnabled},
		fields: make(map[string]interface{}),
	}
}

// LogInfo implements logger.Logger
func (t *TestLogger) LogInfo(msg string, fields map[string]interface{}) {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.infoMessages = append(t.sink.infoMessages, LogEntry{Message: msg, Fields: t.mergeFields(fields)})
}

// LogError implements logger.Logger
func (t *TestLogger) LogError(err error, msg string) error {
	fields := map[string]interface{}{}
	if err != nil {
		fields["error"] = err.Error()
	}

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.errorMessages = append(t.sink.errorMessages, LogEntry{Message: msg, Fields: t.mergeFields(fields)})
	return err
}

// LogErrorf implements logger.Logger
func (t *TestLogger) LogErrorf(err error, format string, args ...interface{}) error {
	return t.LogError(err, fmt.Sprintf(format, args...))
}

// LogFatal implements logger.Logger. It records the entry and does not exit.
func (t *TestLogger) LogFatal(err error, context string) {
	fields := map[string]interface{}{
		"context": context,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.errorMessages = append(t.sink.errorMessages, LogEntry{Message: "FATAL: " + context, Fields: t.mergeFields(fields)})
}

// LogDebug implements logger.Logger
func (t *TestLogger) LogDebug(message string, fields map[string]interface{}) {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	if !t.sink.debugEnabled {
		return
	}
	t.sink.debugMessages = append(t.sink.debugMessages, LogEntry{Message: message, Fields: t.mergeFields(fields)})
}

// LogWarn implements logger.Logger
func (t *TestLogger) LogWarn(message string, fields map[string]interface{}) {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.warnMessages = append(t.sink.warnMessages, LogEntry{Message: message, Fields: t.mergeFields(fields)})
}

// WithFields implements logger.Logger
func (t *TestLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return &TestLogger{
		sink:   t.sink,
		fields: t.mergeFields(fields),
	}
}

// GetInfoMessages returns all info level messages
func (t *TestLogger) GetInfoMessages() []LogEntry {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	return append([]LogEntry(nil), t.sink.infoMessages...)
}

// GetErrorMessages returns all error level messages
func (t *TestLogger) GetErrorMessages() []LogEntry {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	return append([]LogEntry(nil), t.sink.errorMessages...)
}

// GetWarnMessages returns all warning level messages
func (t *TestLogger) GetWarnMessages() []LogEntry {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	return append([]LogEntry(nil), t.sink.warnMessages...)
}

// GetDebugMessages returns all debug level messages
func (t *TestLogger) GetDebugMessages() []LogEntry {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	return append([]LogEntry(nil), t.sink.debugMessages...)
}

// HasWarn reports whether a warning with the given message was logged
func (t *TestLogger) HasWarn(message string) bool {
	for _, e := range t.GetWarnMessages() {
		if e.Message == message {
			return true
		}
	}
	return false
}

// ClearMessages clears all logged messages
func (t *TestLogger) ClearMessages() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.infoMessages = nil
	t.sink.errorMessages = nil
	t.sink.warnMessages = nil
	t.sink.debugMessages = nil
}

// EnableDebug enables debug logging
func (t *TestLogger) EnableDebug() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.debugEnabled = true
}

// DisableDebug disables debug logging
func (t *TestLogger) DisableDebug() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.debugEnabled = false
}

// mergeFields merges the logger's base fields with the provided fields
func (t *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(t.fields)+len(fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
