package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/logger"
)

// query narrows the label to messages that can carry a bill of quantities.
const query = "is:unread has:attachment"

type Connector struct {
	service *gmail.Service
	log     *slog.Logger
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	for _, req := range [][2]string{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
	} {
		if err := cfg.Require(req[0], req[1]); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, log: logger.Get("gmail")}, nil
}

func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMail, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]internal.FetchedMail, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, fromRaw(ref.Id, msg.InternalDate, raw))
	}
	c.log.Debug("fetched messages", "label", label, "count", len(out))
	return out, nil
}

// fromRaw reads the envelope headers from the message itself. A message that
// enmime cannot parse keeps the Gmail id and is left for intake to reject.
func fromRaw(id string, internalDateMs int64, raw []byte) internal.FetchedMail {
	out := internal.FetchedMail{Provider: "gmail", MessageID: id, Raw: raw}

	received := time.Now()
	if internalDateMs > 0 {
		received = time.UnixMilli(internalDateMs)
	}
	out.ReceivedAt = received.UTC().Format(time.RFC3339)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return out
	}
	if v := env.GetHeader("Message-ID"); v != "" {
		out.MessageID = v
	}
	out.Subject = env.GetHeader("Subject")
	out.From = env.GetHeader("From")
	return out
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
