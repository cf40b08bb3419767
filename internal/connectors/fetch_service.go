package connectors

import (
	"context"
	"time"

	"go.uber.org/zap"

	"manifest/internal/storage"
)

// cursorOverlap re-reads a little before the last fetch so messages that
// arrive while a fetch runs are not missed; duplicates upsert in place.
const cursorOverlap = 10 * time.Minute

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	logger    *zap.Logger
	now       func() time.Time
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		logger:    logger,
		now:       time.Now,
	}
}

func cursorKey(provider string) string {
	return "mail_last_fetch_" + provider
}

// FetchAndStore pulls messages newer than the provider's cursor and stores
// them. The cursor advances only after every message was stored.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	provider := s.connector.Provider()
	startedAt := s.now().UTC()

	q := Query{Label: label, Max: max}
	if v, err := s.db.GetMetadata(cursorKey(provider)); err != nil {
		return FetchResult{}, err
	} else if v != nil {
		if t, err := time.Parse(time.RFC3339, *v); err == nil {
			q.Since = t.Add(-cursorOverlap)
		}
	}

	messages, err := s.connector.FetchInbox(ctx, q)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		if _, err := s.store.Store(msg); err != nil {
			return FetchResult{}, err
		}
		stored++
	}

	if err := s.db.SetMetadata(cursorKey(provider), startedAt.Format(time.RFC3339)); err != nil {
		return FetchResult{}, err
	}
	s.logger.Info("mail fetched",
		zap.String("provider", provider),
		zap.String("label", label),
		zap.Int("fetched", len(messages)),
		zap.Int("stored", stored))
	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
