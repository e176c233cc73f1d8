package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "json", &buf)
	log.Info("hidden")
	log.Warn("shown", "step", "migrate")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"step":"migrate"`) {
		t.Fatalf("expected json record, got:\n%s", out)
	}

	buf.Reset()
	New("bogus", "text", &buf).Info("fallback")
	if !strings.Contains(buf.String(), "msg=fallback") {
		t.Fatalf("unknown level should default to info:\n%s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New("info", "text", &buf))
	FromContext(ctx).Info("carried")
	if !strings.Contains(buf.String(), "carried") {
		t.Fatalf("logger not carried through context:\n%s", buf.String())
	}
}
