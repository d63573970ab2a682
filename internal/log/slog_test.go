package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/xerrors"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer, opts Options) Logger {
	t.Helper()
	opts.Writer = buf
	opts.JSON = true
	l, err := newSlog(opts)
	if err != nil {
		t.Fatalf("newSlog: %v", err)
	}
	return l
}

// lastRecord parses the last JSON line written to buf.
func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("parse log line: %v\n%s", err, buf.String())
	}
	return m
}

func TestSlog_BaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost", Version: "v1.0.0"})

	l.Info(context.Background(), "hello", "port", 8080)

	rec := lastRecord(t, &buf)
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["app"] != "uihost" || rec["version"] != "v1.0.0" {
		t.Errorf("base attrs missing: %v", rec)
	}
	if rec["port"] != float64(8080) {
		t.Errorf("port = %v", rec["port"])
	}
	if _, ok := rec["source"]; !ok {
		t.Error("source should be recorded")
	}
}

func TestSlog_SourceIsCaller(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost"})
	l.Info(context.Background(), "where")

	src, _ := lastRecord(t, &buf)["source"].(map[string]any)
	if fn, _ := src["function"].(string); !strings.Contains(fn, "TestSlog_SourceIsCaller") {
		t.Fatalf("source function = %q, want the test", fn)
	}
}

func TestSlog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost", Level: slog.LevelWarn})
	ctx := context.Background()

	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	if buf.Len() != 0 {
		t.Fatalf("debug/info should be filtered, got %s", buf.String())
	}
	l.Warn(ctx, "w")
	if lastRecord(t, &buf)["msg"] != "w" {
		t.Fatal("warn should pass")
	}
}

func TestSlog_WithIsCopyOnWrite(t *testing.T) {
	var buf bytes.Buffer
	base := newJSONLogger(t, &buf, Options{App: "uihost"})
	child := base.With("component", "server", 42, "dropped", "odd")

	child.Info(context.Background(), "child")
	rec := lastRecord(t, &buf)
	if rec["component"] != "server" {
		t.Fatalf("component = %v", rec["component"])
	}
	if _, ok := rec["odd"]; ok {
		t.Fatal("trailing odd key should be dropped")
	}

	buf.Reset()
	base.Info(context.Background(), "base")
	if _, ok := lastRecord(t, &buf)["component"]; ok {
		t.Fatal("With must not mutate the parent")
	}
}

func TestSlog_ErrorEnrichment(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost", IncludeErrorLinks: true})

	base := xerrors.New("hook failed")
	err := xerrors.Wrap(base, "install addon")
	l.Error(context.Background(), err, "startup failed")

	rec := lastRecord(t, &buf)
	if rec["err"] != "install addon: hook failed" {
		t.Errorf("err = %v", rec["err"])
	}
	chain, _ := rec["error_chain"].([]any)
	if len(chain) != 2 {
		t.Errorf("error_chain = %v, want 2 entries", rec["error_chain"])
	}
	links, _ := rec["error_links"].([]any)
	if len(links) == 0 {
		t.Error("error_links should be present")
	}
	stack, _ := rec["stack"].(string)
	if !strings.Contains(stack, "TestSlog_ErrorEnrichment") {
		t.Errorf("stack should point at the error origin, got %q", stack)
	}
}

func TestInternalFrame(t *testing.T) {
	const mod = "github.com/keithlinneman/linnemanlabs-uihost"
	tests := []struct {
		fn   string
		want bool
	}{
		{"log/slog.(*Logger).log", true},
		{mod + "/internal/log.(*slogLogger).Error", true},
		{mod + "/internal/log.(*slogLogger).emit", true},
		{mod + "/internal/log.stackHandler.Handle", true},
		{mod + "/internal/log.traceHandler.Handle", true},
		{mod + "/internal/xerrors.New", true},
		{mod + "/internal/xerrors.attachStack", true},
		{mod + "/internal/log.TestSlog_ErrorEnrichment", false},
		{mod + "/internal/log.TestSlog_ErrorEnrichment.func1", false},
		{mod + "/internal/log.FromContext", false},
		{mod + "/internal/xerrors.TestWrap", false},
		{mod + "/internal/httpserver.Start", false},
		{"main.main", false},
	}
	for _, tt := range tests {
		if got := internalFrame(tt.fn); got != tt.want {
			t.Errorf("internalFrame(%q) = %v, want %v", tt.fn, got, tt.want)
		}
	}
}

func TestSlog_ErrorNil(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost"})
	l.Error(context.Background(), nil, "no error")

	rec := lastRecord(t, &buf)
	if _, ok := rec["err"]; ok {
		t.Fatal("nil error should not add err attr")
	}
	if rec["level"] != "ERROR" {
		t.Fatalf("level = %v", rec["level"])
	}
}

func TestSlog_NoStackBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost"})
	l.Warn(context.Background(), "warned")
	if _, ok := lastRecord(t, &buf)["stack"]; ok {
		t.Fatal("warn should not carry a stack with default stacktrace level")
	}
}

func TestSlog_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf, Options{App: "uihost"})

	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.Info(ctx, "traced")
	rec := lastRecord(t, &buf)
	if rec["trace_id"] != tid.String() || rec["span_id"] != sid.String() {
		t.Fatalf("trace fields = %v / %v", rec["trace_id"], rec["span_id"])
	}

	buf.Reset()
	l.Info(context.Background(), "untraced")
	if _, ok := lastRecord(t, &buf)["trace_id"]; ok {
		t.Fatal("no trace_id expected without a span")
	}
}

func TestSlog_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, _ := newSlog(Options{App: "uihost", Writer: &buf})
	l.Info(context.Background(), "logfmt line")
	if !strings.Contains(buf.String(), `msg="logfmt line"`) {
		t.Fatalf("expected logfmt output, got %s", buf.String())
	}
}

func TestErrorChain_Join(t *testing.T) {
	err := errors.Join(errors.New("a"), errors.New("b"))
	got := errorChain(err)
	want := []string{"a\nb", "a", "b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("errorChain = %q, want %q", got, want)
	}
}

func TestErrorTypes(t *testing.T) {
	type myErr struct{ error }
	inner := &myErr{errors.New("inner")}
	err := xerrors.Wrap(fmt.Errorf("mid: %w", inner), "outer")

	surface, root := errorTypes(err)
	if surface != "*log.myErr" {
		t.Errorf("surface = %q, want *log.myErr", surface)
	}
	// myErr does not unwrap, so it is also the root
	if root != "*log.myErr" {
		t.Errorf("root = %q, want *log.myErr", root)
	}
}
