package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agent007moss/MLT/internal/core/ports"
)

func TestLogMailer_MasksCode(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf), false)

	require.NoError(t, m.Send(context.Background(), ports.OTPDelivery{UserID: 1, Email: "a@b.c", Code: "123456"}))
	require.False(t, strings.Contains(buf.String(), "123456"))
	require.True(t, strings.Contains(buf.String(), `"code":"****56"`))
}

func TestLogMailer_ShowsCodeWhenAllowed(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf), true)

	require.NoError(t, m.Send(context.Background(), ports.OTPDelivery{UserID: 1, Email: "a@b.c", Code: "654321"}))
	require.True(t, strings.Contains(buf.String(), `"code":"654321"`))
}
