package wallog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"waldb/wal"
)

func decodeLastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return out
}

func TestLogLevelMapping(t *testing.T) {
	cases := []struct {
		level wal.Level
		want  string
	}{
		{wal.LevelDebug, "debug"},
		{wal.LevelInfo, "info"},
		{wal.LevelWarn, "warn"},
		{wal.LevelError, "error"},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
		NewZerolog(logger).Log(c.level, "message")

		out := decodeLastLine(t, &buf)
		if out["level"] != c.want {
			t.Fatalf("level %v: got zerolog level %q, want %q", c.level, out["level"], c.want)
		}
		if out["message"] != "message" {
			t.Fatalf("level %v: got message %q, want %q", c.level, out["message"], "message")
		}
	}
}

func TestLogAttrsAreKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	NewZerolog(logger).Log(wal.LevelInfo, "rolled segment", "segment", float64(3), "size", float64(1024))

	out := decodeLastLine(t, &buf)
	if out["segment"] != float64(3) {
		t.Fatalf("segment attr: got %v, want 3", out["segment"])
	}
	if out["size"] != float64(1024) {
		t.Fatalf("size attr: got %v, want 1024", out["size"])
	}
}

func TestLogOddAttrsIgnoresTrailingKey(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	NewZerolog(logger).Log(wal.LevelInfo, "message", "dangling-key")

	out := decodeLastLine(t, &buf)
	if _, ok := out["dangling-key"]; ok {
		t.Fatalf("expected trailing unpaired key to be dropped, got %v", out)
	}
}

func TestLogNonStringKeyIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	NewZerolog(logger).Log(wal.LevelInfo, "message", 42, "value")

	out := decodeLastLine(t, &buf)
	if out["message"] != "message" {
		t.Fatalf("message should still be written: got %v", out)
	}
}

func TestNewZerologImplementsWalLogger(t *testing.T) {
	var _ wal.Logger = NewZerolog(zerolog.Nop())
}
