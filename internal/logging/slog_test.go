package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{name: "operation", attr: Operation("calendar"), key: KeyOperation, want: "calendar"},
		{name: "tool", attr: Tool("criar_evento"), key: KeyTool, want: "criar_evento"},
		{name: "status", attr: Status(StatusSuccess), key: KeyStatus, want: "success"},
		{name: "request id", attr: RequestID("req-1"), key: KeyRequestID, want: "req-1"},
		{name: "event id", attr: EventID("evt-1"), key: KeyEventID, want: "evt-1"},
		{name: "failure kind", attr: FailureKind("not_found"), key: KeyFailureKind, want: "not_found"},
		{name: "error", attr: Err(errors.New("boom")), key: KeyError, want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.want {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.want)
			}
		})
	}
}

func TestEmptyAttrsAreOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("msg", Err(nil), EventID(""))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("failed to decode %q: %v", buf.String(), err)
	}
	if _, ok := rec[KeyError]; ok {
		t.Error("nil error should be omitted")
	}
	if _, ok := rec[KeyEventID]; ok {
		t.Error("empty event id should be omitted")
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithTool(WithRequestID(WithOperation(base, "agent"), "req-7"), "busca_eventos").Info("msg")

	out := buf.String()
	for _, want := range []string{`"operation":"agent"`, `"request_id":"req-7"`, `"tool":"busca_eventos"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}

	if WithRequestID(base, "") != base {
		t.Error("empty request id should return the same logger")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "curto", n: 10, want: "curto"},
		{in: "amanhã às 9h", n: 6, want: "amanhã…[+6]"},
		{in: "", n: 3, want: ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}

	if got := Question(strings.Repeat("a", 500)).Value.String(); len([]rune(got)) > maxQuestionLength+10 {
		t.Errorf("Question was not truncated: %d runes", len([]rune(got)))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "", want: slog.LevelInfo},
		{name: "DEBUG", want: slog.LevelDebug},
		{name: "warning", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error", tt.name)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "warn", Format: "json", Component: "test"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Info("dropped")
	logger.Warn("kept", Duration(time.Second))

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("expected component attribute in %s", out)
	}

	if _, _, err := New(Config{Format: "xml"}, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agenda.log")

	var buf bytes.Buffer
	logger, closer, err := New(Config{File: path}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("expected record in log file, got %q", data)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Error("expected record on the primary writer too")
	}
}

func TestPrintfAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewPrintfAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	adapter.Infof("session %s started", "abc")
	adapter.Errorf("write failed: %v", errors.New("broken pipe"))

	out := buf.String()
	if !strings.Contains(out, "session abc started") || !strings.Contains(out, "write failed: broken pipe") {
		t.Errorf("unexpected output %q", out)
	}
	if NewPrintfAdapter(nil).Logger() == nil {
		t.Error("nil logger should fall back to slog.Default")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() on empty context = %q, want empty", got)
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, "req-1")
	}
}
