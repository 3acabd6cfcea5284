// Package notify tells users about changes to their accounts. Delivery transports live outside
// this repository, the providers here log or discard.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/config"
)

// Kind of account change.
type Kind string

const (
	KindCreated     Kind = "created"
	KindUpdated     Kind = "updated"
	KindDeactivated Kind = "deactivated"
)

// SetupPath is the endpoint consuming password setup tokens.
const SetupPath = "/password/setup"

// Message describes one account change.
type Message struct {
	Kind     Kind
	UserID   string
	Email    string
	Name     string
	TenantID *string
	// SetupToken is the plain password setup token, empty unless a setup link was requested.
	SetupToken string
}

// Notifier delivers messages. Failures are reported but must never undo the change.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// New returns the notifier selected by cfg.Notify.Provider.
func New(cfg *config.Config) (Notifier, error) {
	switch cfg.Notify.Provider {
	case "log", "":
		return NewLogNotifier(cfg.Webserver.URL, cfg.Notify.FromAddress), nil
	case "noop":
		return NoOp{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedNotifyProvider, cfg.Notify.Provider)
	}
}

// LogNotifier writes messages to the application log.
type LogNotifier struct {
	baseURL string
	from    string
}

// NewLogNotifier creates a LogNotifier building setup links below baseURL.
func NewLogNotifier(baseURL, from string) *LogNotifier {
	return &LogNotifier{baseURL: strings.TrimSuffix(baseURL, "/"), from: from}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	ev := log.Info().
		Str("kind", string(msg.Kind)).
		Str("user_id", msg.UserID).
		Str("to", msg.Email).
		Str("from", n.from)

	if msg.TenantID != nil {
		ev = ev.Str("tenant_id", *msg.TenantID)
	}

	if msg.SetupToken != "" {
		ev = ev.Str("setup_link", n.SetupLink(msg.SetupToken))
	}

	ev.Msg("account notification")

	return nil
}

// SetupLink returns the url a user follows to choose a password.
func (n *LogNotifier) SetupLink(token string) string {
	return n.baseURL + SetupPath + "?token=" + url.QueryEscape(token)
}

// NoOp discards every message.
type NoOp struct{}

// Notify implements Notifier.
func (NoOp) Notify(context.Context, Message) error {
	return nil
}
