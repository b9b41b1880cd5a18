package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/timshannon/badgerhold/v4"
)

type documentRepository struct {
	s *Store
}

var _ storage.DocumentRepository = (*documentRepository)(nil)

// NewDocumentRepository returns a DocumentRepository backed by s.
func NewDocumentRepository(s *Store) (storage.DocumentRepository, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	return &documentRepository{s: s}, nil
}

func (r *documentRepository) CreateDocument(_ context.Context, doc *core.Document) (*core.Document, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, core.ErrInvalidDocument
	}

	created := *doc
	if created.ID == "" {
		created.ID = core.NewID()
	}
	if created.Status == "" {
		created.Status = core.StatusPending
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	if err := core.ValidateDocument(&created); err != nil {
		return nil, err
	}
	if err := r.s.store.Insert(created.ID, &created); err != nil {
		return nil, translate(err)
	}
	return &created, nil
}

func (r *documentRepository) GetDocument(_ context.Context, id string) (*core.Document, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	var doc core.Document
	if err := r.s.store.Get(id, &doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (r *documentRepository) UpdateStatus(_ context.Context, id string, status core.DocumentStatus, message string) (*core.Document, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}

	var doc core.Document
	err := r.s.store.Badger().Update(func(tx *badger.Txn) error {
		if err := r.s.store.TxGet(tx, id, &doc); err != nil {
			return translate(err)
		}
		if err := core.ValidateTransition(doc.Status, status); err != nil {
			return fmt.Errorf("document %s: %w", id, err)
		}
		doc.Status = status
		doc.Message = message
		doc.UpdatedAt = time.Now().UTC()
		return r.s.store.TxUpdate(tx, id, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) SetTopics(_ context.Context, id string, topics []string) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	return r.s.store.Badger().Update(func(tx *badger.Txn) error {
		var doc core.Document
		if err := r.s.store.TxGet(tx, id, &doc); err != nil {
			return translate(err)
		}
		doc.Topics = slices.Clone(topics)
		doc.UpdatedAt = time.Now().UTC()
		return r.s.store.TxUpdate(tx, id, &doc)
	})
}

func (r *documentRepository) ListDocuments(_ context.Context, projectID string, statuses ...core.DocumentStatus) ([]*core.Document, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}

	var docs []core.Document
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")
	if err := r.s.store.Find(&docs, query); err != nil {
		return nil, translate(err)
	}

	out := make([]*core.Document, 0, len(docs))
	for i := range docs {
		if len(statuses) > 0 && !slices.Contains(statuses, docs[i].Status) {
			continue
		}
		out = append(out, &docs[i])
	}
	slices.SortFunc(out, func(a, b *core.Document) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *documentRepository) DeleteDocument(_ context.Context, id string) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	return translate(r.s.store.Delete(id, &core.Document{}))
}
