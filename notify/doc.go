// Package notify delivers kidsAuth verification email and two-factor SMS.
//
// [SMTPMailer] implements kidsAuth.EmailSender over SMTP with STARTTLS,
// implicit TLS or plain connections. [TwilioSender] implements
// kidsAuth.SMSSender against the Twilio Messages REST API. [LogMailer] and
// [LogSMS] write messages to a slog.Logger for local development.
package notify
