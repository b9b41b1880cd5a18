package badger

import (
	"context"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/timshannon/badgerhold/v4"
)

type summaryRepository struct {
	s *Store
}

var _ storage.SummaryRepository = (*summaryRepository)(nil)

// NewSummaryRepository returns a SummaryRepository backed by s.
func NewSummaryRepository(s *Store) (storage.SummaryRepository, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	return &summaryRepository{s: s}, nil
}

func (r *summaryRepository) GetSummary(_ context.Context, key string) (*core.Summary, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	var summary core.Summary
	if err := r.s.store.Get(key, &summary); err != nil {
		return nil, translate(err)
	}
	return &summary, nil
}

func (r *summaryRepository) PutSummary(_ context.Context, summary *core.Summary) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	return translate(r.s.store.Upsert(summary.Key, summary))
}

func (r *summaryRepository) InvalidateProject(_ context.Context, projectID string) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	return translate(r.s.store.DeleteMatching(&core.Summary{}, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")))
}
