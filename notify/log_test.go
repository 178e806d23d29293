package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogSenders(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	if err := (LogMailer{Logger: logger}).SendEmail(context.Background(), "parent@example.com", "Verify", "<p>x</p>"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	id, err := (LogSMS{Logger: logger}).SendSMS(context.Background(), "+15551234567", "code 1")
	if err != nil || id == "" {
		t.Fatalf("SendSMS: %q %v", id, err)
	}

	out := buf.String()
	if !strings.Contains(out, `"to":"parent@example.com"`) || !strings.Contains(out, `"to":"+15551234567"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}
