package connectors

import (
	"context"
	"fmt"
	"strings"

	"quotedesk/internal"
	"quotedesk/internal/config"
	gmailconnector "quotedesk/internal/connectors/gmail"
	imapconnector "quotedesk/internal/connectors/imap"
)

// MailConnector pulls raw messages from a mailbox label or folder.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMail, error)
}

// New builds the connector for provider ("imap" or "gmail").
func New(ctx context.Context, cfg config.Config, provider string) (MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}
