package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{SuccessLevel, "OK"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestLevelSeverity(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "info"},
		{InfoLevel, "info"},
		{SuccessLevel, "success"},
		{WarnLevel, "warning"},
		{ErrorLevel, "error"},
	}
	for _, tt := range tests {
		if got := tt.level.Severity(); got != tt.expected {
			t.Errorf("%v.Severity() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"success": SuccessLevel,
		"warning": WarnLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}

func TestLoggerInitialization(t *testing.T) {
	err := Initialize(Config{Level: InfoLevel, Component: "test"})
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if Default() == nil {
		t.Fatal("Initialize() did not set defaultLogger")
	}

	if Default().config.Component != "test" {
		t.Errorf("Initialize() did not set config correctly, got component: %s", Default().config.Component)
	}
}

func TestLoggerPrettyFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		config: Config{Level: InfoLevel, Component: "test"},
		logger: log.New(&buf, "", 0),
	}

	entry := LogEntry{
		Time:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "test message",
		Component: "test",
		Fields:    map[string]interface{}{"b": 2, "a": "value"},
	}

	result := l.formatPretty(entry)

	expectedParts := []string{
		"2025-01-01 12:00:00",
		"[INFO]",
		"test:",
		"test message",
		"{a=value, b=2}",
	}

	for _, part := range expectedParts {
		if !strings.Contains(result, part) {
			t.Errorf("formatPretty() result missing expected part: %s\nResult: %s", part, result)
		}
	}
}

func TestLoggerJSONFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true, Component: "test"}, &buf)

	l.Log(InfoLevel, "test message", String("key", "value"))

	output := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Fatalf("Log() with JSON config did not produce JSON output: %s", output)
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("Log() output is not valid JSON: %v", err)
	}
	if entry.Message != "test message" {
		t.Errorf("JSON message = %q", entry.Message)
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("JSON fields = %v", entry.Fields)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel}, &buf)

	l.Log(InfoLevel, "hidden")
	l.Log(SuccessLevel, "hidden too")
	l.Log(WarnLevel, "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WarnLevel were written: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("WarnLevel message missing: %s", out)
	}
}

func TestLoggerAsSink(t *testing.T) {
	var buf bytes.Buffer
	var sink Sink = New(Config{Level: InfoLevel}, &buf)
	sink.Emit("staged 3 files", SuccessLevel)
	if !strings.Contains(buf.String(), "[OK] staged 3 files") {
		t.Errorf("unexpected sink output: %s", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit("one", InfoLevel)
	rec.Emit("two", ErrorLevel)
	rec.Emit("three", WarnLevel)

	all := rec.Messages(TraceLevel)
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	warn := rec.Messages(WarnLevel)
	if len(warn) != 2 || warn[0] != "two" || warn[1] != "three" {
		t.Errorf("Messages(WarnLevel) = %v", warn)
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := String("k", "v"); f.Key != "k" || f.Value != "v" {
		t.Errorf("String() = %+v", f)
	}
	if f := Int("n", 3); f.Value != 3 {
		t.Errorf("Int() = %+v", f)
	}
	if f := Bool("b", true); f.Value != true {
		t.Errorf("Bool() = %+v", f)
	}
}

func TestSetOutput(t *testing.T) {
	if err := Initialize(Config{Level: InfoLevel}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)
	Warn("redirected")
	if !strings.Contains(buf.String(), "redirected") {
		t.Errorf("SetOutput did not redirect: %q", buf.String())
	}
}
