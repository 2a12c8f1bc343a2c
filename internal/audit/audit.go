// Package audit writes security-relevant events to a structured JSONL log,
// separate from the application log, for audit and incident response.
// Credential material never reaches this log: field values under sensitive
// keys are redacted before encoding.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Event types recorded in the security log.
const (
	EventAuthSuccess           = "auth_success"
	EventAuthFailure           = "auth_failure"
	EventAPICall               = "api_call"
	EventPerChannelFailure     = "per_channel_failure"
	EventRateLimitEngaged      = "rate_limit_engaged"
	EventOperationTimeout      = "operation_timeout"
	EventInputValidationFailed = "input_validation_failed"
	EventFileOperation         = "file_operation"
	EventError                 = "error"
)

// maxLogSize bounds one log generation; at open time an oversized file is
// rotated to <path>.1 so the log cannot exhaust the disk.
const maxLogSize = 10 * 1024 * 1024

const maxValueLen = 500

var sensitiveKeyTerms = []string{"token", "api_key", "apikey", "password", "secret", "credential", "auth"}

// Logger appends security events to a JSONL file.
type Logger struct {
	zl zerolog.Logger
}

// New opens (or creates) the security log at path. The file is created 0600;
// parent directories are created as needed.
func New(path string) (*Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create security log directory: %w", err)
	}
	rotateIfOversized(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open security log: %w", err)
	}

	zl := zerolog.New(f).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards every event. Used in tests and when the
// security log cannot be opened.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Event records one security event. Details are sanitized: values under keys
// containing a sensitive term are replaced with [REDACTED], and long string
// values are truncated.
func (l *Logger) Event(eventType, message string, details map[string]any) {
	ev := l.zl.WithLevel(levelFor(eventType))
	ev = ev.Str("event_type", eventType)
	for k, v := range sanitize(details) {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}

// AuthAttempt records an authentication success or failure against a service.
func (l *Logger) AuthAttempt(success bool, service, reason string) {
	details := map[string]any{"service": service}
	if reason != "" {
		details["reason"] = reason
	}
	if success {
		l.Event(EventAuthSuccess, service+" authentication succeeded", details)
		return
	}
	l.Event(EventAuthFailure, service+" authentication failed", details)
}

// APICall records an outbound API operation for monitoring.
func (l *Logger) APICall(service, operation string, duration time.Duration, success bool) {
	l.Event(EventAPICall, fmt.Sprintf("%s API call: %s", service, operation), map[string]any{
		"service":     service,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
		"success":     success,
	})
}

// RateLimitEngaged records that the concurrency cap throttled channel fetches.
func (l *Logger) RateLimitEngaged(service string, concurrentLimit int) {
	l.Event(EventRateLimitEngaged, "Rate limiting applied to "+service, map[string]any{
		"service":          service,
		"concurrent_limit": concurrentLimit,
	})
}

// ChannelFailure records a per-channel fetch failure that was isolated from
// the rest of the operation.
func (l *Logger) ChannelFailure(channel, reason string) {
	l.Event(EventPerChannelFailure, "Channel fetch failed: "+channel, map[string]any{
		"channel": channel,
		"reason":  reason,
	})
}

// OperationTimeout records that a fetch operation hit its overall deadline.
func (l *Logger) OperationTimeout(server string, timeout time.Duration) {
	l.Event(EventOperationTimeout, "Fetch operation timed out", map[string]any{
		"server":          server,
		"timeout_seconds": int(timeout.Seconds()),
	})
}

// ValidationFailure records rejected user input (a potential probe).
func (l *Logger) ValidationFailure(inputType, value, reason string) {
	if len(value) > 100 {
		value = value[:100]
	}
	l.Event(EventInputValidationFailed, "Input validation failed for "+inputType, map[string]any{
		"input_type": inputType,
		"value":      value,
		"reason":     reason,
	})
}

// FileOperation records a file write for the audit trail. Only the base name
// is logged.
func (l *Logger) FileOperation(operation, path, permissions string) {
	details := map[string]any{
		"operation": operation,
		"filename":  filepath.Base(path),
	}
	if permissions != "" {
		details["permissions"] = permissions
	}
	l.Event(EventFileOperation, fmt.Sprintf("File %s: %s", operation, filepath.Base(path)), details)
}

func levelFor(eventType string) zerolog.Level {
	switch eventType {
	case EventAuthFailure, EventInputValidationFailed:
		return zerolog.WarnLevel
	case EventError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func sanitize(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		if s, ok := v.(string); ok && len(s) > maxValueLen {
			out[k] = s[:maxValueLen] + "...[truncated]"
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, term := range sensitiveKeyTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func rotateIfOversized(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() < maxLogSize {
		return
	}
	_ = os.Rename(path, path+".1")
}
