package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"manifest/internal"
	"manifest/internal/config"
	"manifest/internal/connectors"
)

const provider = "gmail"

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
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

	return &Connector{service: svc}, nil
}

func (c *Connector) Provider() string { return provider }

// FetchInbox lists messages under the label and downloads each in raw form.
func (c *Connector) FetchInbox(ctx context.Context, q connectors.Query) ([]internal.FetchedMailMessage, error) {
	label := q.Label
	if label == "" {
		label = "INBOX"
	}
	listCall := c.service.Users.Messages.List("me").LabelIds(label).Context(ctx)
	if q.Max > 0 {
		listCall = listCall.MaxResults(int64(q.Max))
	}
	if query := searchQuery(q); query != "" {
		listCall = listCall.Q(query)
	}
	listResp, err := listCall.Do()
	if err != nil {
		return nil, err
	}

	messages := listResp.Messages
	out := make([]internal.FetchedMailMessage, 0, len(messages))

	for _, msgRef := range messages {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		metaResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("metadata").MetadataHeaders("Subject", "From", "Date", "Message-ID").Context(ctx).Do()
		if err != nil {
			return nil, err
		}

		if rawResp.Raw == "" {
			continue
		}

		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		headers := map[string]string{}
		if metaResp.Payload != nil {
			for _, h := range metaResp.Payload.Headers {
				headers[strings.ToLower(h.Name)] = h.Value
			}
		}

		received := time.Now().UTC().Format(time.RFC3339)
		if dateHeader := headers["date"]; dateHeader != "" {
			if t, err := time.Parse(time.RFC1123Z, dateHeader); err == nil {
				received = t.UTC().Format(time.RFC3339)
			} else if t, err := mailDateFallback(dateHeader); err == nil {
				received = t.UTC().Format(time.RFC3339)
			}
		}

		messageID := headers["message-id"]
		if messageID == "" {
			messageID = msgRef.Id
		}

		out = append(out, internal.FetchedMailMessage{
			Provider:   provider,
			MessageID:  messageID,
			Subject:    headers["subject"],
			From:       headers["from"],
			ReceivedAt: received,
			Raw:        rawBytes,
		})
	}

	return out, nil
}

// searchQuery narrows the listing to mail that can carry a manifest.
func searchQuery(q connectors.Query) string {
	parts := []string{`(has:attachment OR subject:(manifest OR shipment OR "delivery order" OR "load plan"))`}
	if !q.Since.IsZero() {
		parts = append(parts, fmt.Sprintf("after:%d", q.Since.Unix()))
	}
	return strings.Join(parts, " ")
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

func mailDateFallback(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}
