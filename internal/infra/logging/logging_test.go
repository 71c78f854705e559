package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "t-123")
	ctx = WithSessionID(ctx, "s-456")

	With(ctx, &base).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"t-123"`) {
		t.Fatalf("trace_id missing from output: %s", out)
	}
	if !strings.Contains(out, `"session_id":"s-456"`) {
		t.Fatalf("session_id missing from output: %s", out)
	}
}

func TestWithIgnoresAbsentFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	With(context.Background(), &base).Info().Msg("hello")

	out := buf.String()
	if strings.Contains(out, "trace_id") || strings.Contains(out, "session_id") {
		t.Fatalf("unexpected context fields in output: %s", out)
	}
}

func TestTraceDurationLogsStartAndFinish(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	TraceDuration(&base, "ChatUC.SendMessage")()

	out := buf.String()
	if !strings.Contains(out, `"method":"ChatUC.SendMessage"`) {
		t.Fatalf("method field missing: %s", out)
	}
	if !strings.Contains(out, "start") || !strings.Contains(out, "finish") {
		t.Fatalf("expected start and finish events, got: %s", out)
	}
	if !strings.Contains(out, "duration") {
		t.Fatalf("duration missing from finish event: %s", out)
	}
}
