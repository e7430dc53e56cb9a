package connectors

import (
	"context"

	"quotedesk/internal"
	"quotedesk/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	// New counts stored mails not yet processed.
	New int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		rec, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		res.Stored++
		if rec.Status == internal.MailFetched {
			res.New++
		}
	}
	return res, nil
}
