package connectors

import (
	"context"
	"time"

	"manifest/internal"
)

// Query selects which messages a connector returns. A zero Since fetches
// without a date bound.
type Query struct {
	Label string
	Max   int
	Since time.Time
}

type MailConnector interface {
	Provider() string
	FetchInbox(ctx context.Context, q Query) ([]internal.FetchedMailMessage, error)
}
