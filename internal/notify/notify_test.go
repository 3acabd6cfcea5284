package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantadmin/tenantadmin/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Defaults()

	n, err := New(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	cfg.Notify.Provider = "noop"
	n, err = New(&cfg)
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, n)

	cfg.Notify.Provider = "pigeon"
	_, err = New(&cfg)
	require.ErrorIs(t, err, config.ErrUnsupportedNotifyProvider)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer

	prev := log.Logger
	log.Logger = zerolog.New(&buf)

	t.Cleanup(func() { log.Logger = prev })

	tenantID := "t-1"
	n := NewLogNotifier("https://admin.example.com/", "noreply@example.com")

	require.NoError(t, n.Notify(context.Background(), Message{
		Kind:       KindCreated,
		UserID:     "u-1",
		Email:      "jane@example.com",
		TenantID:   &tenantID,
		SetupToken: "abc+def",
	}))

	out := buf.String()
	assert.Contains(t, out, `"kind":"created"`)
	assert.Contains(t, out, `"tenant_id":"t-1"`)
	assert.Contains(t, out, "https://admin.example.com/password/setup?token=abc%2Bdef")

	assert.NoError(t, NoOp{}.Notify(context.Background(), Message{}))
}
