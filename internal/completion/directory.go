package completion

import (
	"context"
	"fmt"
)

// DocumentIndexer is satisfied by *database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, id string, doc interface{}) error
}

// DirectorySink makes the vendor searchable in the vendor directory index.
type DirectorySink struct {
	indexer DocumentIndexer
}

func NewDirectorySink(indexer DocumentIndexer) *DirectorySink {
	return &DirectorySink{indexer: indexer}
}

func (s *DirectorySink) Name() string { return "directory" }

func (s *DirectorySink) Deliver(ctx context.Context, rec Record) error {
	if err := s.indexer.IndexDocument(ctx, rec.VendorID, rec.document()); err != nil {
		return fmt.Errorf("index vendor %s: %w", rec.VendorID, err)
	}
	return nil
}
