package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogWritesOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	defer SetEnabled(false)

	Log("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	SetEnabled(true)
	Log("visible %d", 2)
	LogIf(false, "skipped")
	LogIf(true, "conditional")
	LogTiming("step", 5*time.Millisecond)
	Section("build")
	Dump("count", 3)
	LogEnterExit("fn")()

	out := buf.String()
	for _, want := range []string{"visible 2", "conditional", "step took", "=== build ===", "count: int = 3", "-> fn", "<- fn"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "skipped") {
		t.Error("LogIf(false) should not write")
	}
	if !Enabled() {
		t.Error("expected Enabled() to report true")
	}
}
