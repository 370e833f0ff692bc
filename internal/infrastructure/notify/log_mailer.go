// Package notify holds OTP senders. LogMailer stands in for SMTP delivery,
// which is outside this service.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/ports"
)

// LogMailer writes deliveries to the structured log. The code is masked
// unless showCode is set, which callers only do outside production.
type LogMailer struct {
	log      zerolog.Logger
	showCode bool
}

func NewLogMailer(log zerolog.Logger, showCode bool) *LogMailer {
	return &LogMailer{log: log, showCode: showCode}
}

func (m *LogMailer) Send(_ context.Context, d ports.OTPDelivery) error {
	code := mask(d.Code)
	if m.showCode {
		code = d.Code
	}
	m.log.Info().
		Int64("user_id", d.UserID).
		Str("to", d.Email).
		Str("code", code).
		Time("expires_at", d.ExpiresAt).
		Msg("otp email queued")
	return nil
}

func mask(code string) string {
	if len(code) <= 2 {
		return "******"
	}
	out := make([]byte, len(code))
	for i := range out {
		out[i] = '*'
	}
	copy(out[len(out)-2:], code[len(code)-2:])
	return string(out)
}
