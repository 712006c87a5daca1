package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogger_IncludesToolFields verifies meta fields are present in log output.
func TestLogger_IncludesToolFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{
		Namespace: "github",
		Name:      "create_issue",
	}

	resourceLogger := logger.WithResource(meta)
	resourceLogger.Info(context.Background(), "test message")

	output := buf.String()

	// Parse JSON output
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, output)
	}

	// Verify meta fields
	if v, ok := logEntry["resource.id"].(string); !ok || v != "github.create_issue" {
		t.Errorf("expected resource.id='github.create_issue', got %v", logEntry["resource.id"])
	}
	if v, ok := logEntry["resource.namespace"].(string); !ok || v != "github" {
		t.Errorf("expected resource.namespace='github', got %v", logEntry["resource.namespace"])
	}
	if v, ok := logEntry["resource.name"].(string); !ok || v != "create_issue" {
		t.Errorf("expected resource.name='create_issue', got %v", logEntry["resource.name"])
	}
}

// TestLogger_IncludesDuration verifies duration_ms field is present.
func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Name: "test_tool"}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Info(context.Background(), "test message",
		Field{Key: "duration_ms", Value: 50.5},
	)

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", logEntry["duration_ms"])
	}
}

// TestLogger_ErrorLevel verifies error log level and error field.
func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Name: "error_tool"}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Error(context.Background(), "execution failed",
		Field{Key: "error", Value: "connection timeout"},
	)

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	// Verify level
	if v, ok := logEntry["level"].(string); !ok || v != "error" {
		t.Errorf("expected level='error', got %v", logEntry["level"])
	}

	// Verify error field
	if v, ok := logEntry["error"].(string); !ok || v != "connection timeout" {
		t.Errorf("expected error='connection timeout', got %v", logEntry["error"])
	}
}

// TestLogger_InfoLevel verifies info log level.
func TestLogger_InfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Name: "info_tool"}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Info(context.Background(), "operation complete")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["level"].(string); !ok || v != "info" {
		t.Errorf("expected level='info', got %v", logEntry["level"])
	}
}

// TestLogger_InputsRedactedByDefault verifies inputs are not logged.
func TestLogger_InputsRedactedByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Name: "sensitive_tool"}
	resourceLogger := logger.WithResource(meta)

	// Simulate logging with an "input" field that should be redacted
	resourceLogger.Info(context.Background(), "meta executed",
		Field{Key: "input", Value: "secret_password_123"},
	)

	output := buf.String()

	// The raw input value should NOT appear
	if strings.Contains(output, "secret_password_123") {
		t.Error("raw input should be redacted, but found in output")
	}

	// Should contain redacted marker
	if !strings.Contains(output, "[REDACTED]") && !strings.Contains(output, "[redacted]") {
		// If no redacted marker, verify input field is simply not present
		var logEntry map[string]any
		if err := json.Unmarshal([]byte(output), &logEntry); err == nil {
			if _, ok := logEntry["input"]; ok {
				if v, ok := logEntry["input"].(string); ok && v == "secret_password_123" {
					t.Error("raw input should be redacted")
				}
			}
		}
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	meta := ResourceMeta{Name: "filtered_tool"}
	resourceLogger := logger.WithResource(meta)

	// Info should be filtered out
	resourceLogger.Info(context.Background(), "info message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	// Warn should pass through
	resourceLogger.Warn(context.Background(), "warn message")

	output = buf.String()
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

// TestLogger_DebugLevel verifies debug level filtering.
func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	meta := ResourceMeta{Name: "debug_tool"}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Debug(context.Background(), "debug message")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["level"].(string); !ok || v != "debug" {
		t.Errorf("expected level='debug', got %v", logEntry["level"])
	}
}

// TestLogger_WarnLevel verifies warn level.
func TestLogger_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Name: "warn_tool"}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Warn(context.Background(), "warning message")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["level"].(string); !ok || v != "warn" {
		t.Errorf("expected level='warn', got %v", logEntry["level"])
	}
}

// TestLogger_VersionIncluded verifies version is included when set.
func TestLogger_VersionIncluded(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{
		Name:    "versioned_tool",
		Version: "2.0.0",
	}
	resourceLogger := logger.WithResource(meta)

	resourceLogger.Info(context.Background(), "test")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["resource.version"].(string); !ok || v != "2.0.0" {
		t.Errorf("expected resource.version='2.0.0', got %v", logEntry["resource.version"])
	}
}

func TestLogger_SuppressesRepeatedMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	for i := 0; i < 8; i++ {
		logger.Info(context.Background(), "dial failed, retrying")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5 (burst of 5 admitted, rest suppressed)", len(lines))
	}
}

func TestLogger_AlternatingMessagesNotSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	for i := 0; i < 8; i++ {
		logger.Info(context.Background(), "message a")
		logger.Info(context.Background(), "message b")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 16 {
		t.Fatalf("got %d lines, want 16: alternating keys reset the suppressor each time", len(lines))
	}
}
