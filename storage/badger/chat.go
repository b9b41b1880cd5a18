package badger

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/timshannon/badgerhold/v4"
)

type chatRepository struct {
	s *Store
}

var _ storage.ChatRepository = (*chatRepository)(nil)

// NewChatRepository returns a ChatRepository backed by s.
func NewChatRepository(s *Store) (storage.ChatRepository, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	return &chatRepository{s: s}, nil
}

func (r *chatRepository) AddChatMessages(_ context.Context, messages ...*core.ChatMessage) ([]*core.ChatMessage, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if err := core.ValidateChatMessage(msg); err != nil {
			return nil, err
		}
	}

	added := make([]*core.ChatMessage, 0, len(messages))
	err := r.s.store.Badger().Update(func(tx *badger.Txn) error {
		for _, msg := range messages {
			m := *msg
			if m.ID == "" {
				m.ID = core.NewID()
			}
			if m.CreatedAt.IsZero() {
				m.CreatedAt = time.Now().UTC()
			}
			seq, err := r.s.nextChatSeq()
			if err != nil {
				return err
			}
			m.Seq = seq
			if err := r.s.store.TxInsert(tx, m.ID, &m); err != nil {
				return translate(err)
			}
			added = append(added, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (r *chatRepository) History(_ context.Context, projectID string, limit int) ([]*core.ChatMessage, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}

	var found []core.ChatMessage
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")
	if err := r.s.store.Find(&found, query); err != nil {
		return nil, translate(err)
	}

	messages := make([]*core.ChatMessage, len(found))
	for i := range found {
		messages[i] = &found[i]
	}
	slices.SortFunc(messages, func(a, b *core.ChatMessage) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}
