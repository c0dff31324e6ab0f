package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"  Error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitWriterFormats(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	defer SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")
	slog.Info("hello", "key", "A")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("json output = %q, want a JSON object", buf.String())
	}

	buf.Reset()
	InitWriter(&buf, "warn", "text")
	slog.Info("dropped")
	slog.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=kept") {
		t.Errorf("text output = %q, want msg=kept", out)
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(slog.LevelError)
	defer SetLevel(slog.LevelInfo)
	if Level() != slog.LevelError {
		t.Errorf("Level() = %v, want %v", Level(), slog.LevelError)
	}
}

func TestForTagsComponent(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	For("combo").With("attempt", "x").Info("armed")

	records := c.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	attrs := map[string]string{}
	records[0].Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	if attrs["component"] != "combo" {
		t.Errorf("component = %q, want combo", attrs["component"])
	}
	if attrs["attempt"] != "x" {
		t.Errorf("attempt = %q, want x", attrs["attempt"])
	}
}

func TestComponentHandlerEnabledFollowsLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	defer SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	InitWriter(&buf, "warn", "text")

	h := &componentHandler{component: "test"}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestCapture(t *testing.T) {
	c := CaptureForTest()
	slog.Info("image saved")
	slog.Warn("couldn't load bindings")
	slog.Debug("guard busy")
	c.Restore()

	if !c.Has(slog.LevelInfo, "image saved") {
		t.Error("missing info record")
	}
	if c.Has(slog.LevelError, "image saved") {
		t.Error("level should be matched exactly")
	}
	if got := c.Count(slog.LevelWarn); got != 1 {
		t.Errorf("Count(warn) = %d, want 1", got)
	}
	if got := c.Count(slog.LevelDebug); got != 1 {
		t.Errorf("Count(debug) = %d, want 1", got)
	}

	slog.Info("after restore")
	if c.Has(slog.LevelInfo, "after restore") {
		t.Error("capture still installed after Restore")
	}
}
