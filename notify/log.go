package notify

import (
	"context"
	"log/slog"
)

// LogMailer writes outgoing email to a logger instead of sending it.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	logger(m.Logger).InfoContext(ctx, "email (not sent)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", htmlBody),
	)
	return nil
}

// LogSMS writes outgoing text messages to a logger instead of sending them.
type LogSMS struct {
	Logger *slog.Logger
}

func (s LogSMS) SendSMS(ctx context.Context, to, body string) (string, error) {
	logger(s.Logger).InfoContext(ctx, "sms (not sent)",
		slog.String("to", to),
		slog.String("body", body),
	)
	return "log", nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
