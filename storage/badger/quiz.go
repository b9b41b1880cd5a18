package badger

import (
	"context"
	"slices"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/timshannon/badgerhold/v4"
)

type quizRepository struct {
	s *Store
}

var _ storage.QuizRepository = (*quizRepository)(nil)

// NewQuizRepository returns a QuizRepository backed by s.
func NewQuizRepository(s *Store) (storage.QuizRepository, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	return &quizRepository{s: s}, nil
}

func (r *quizRepository) SaveQuiz(_ context.Context, quiz *core.Quiz) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	if quiz.ID == "" {
		quiz.ID = core.NewID()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	return translate(r.s.store.Upsert(quiz.ID, quiz))
}

func (r *quizRepository) GetQuiz(_ context.Context, id string) (*core.Quiz, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	var quiz core.Quiz
	if err := r.s.store.Get(id, &quiz); err != nil {
		return nil, translate(err)
	}
	return &quiz, nil
}

func (r *quizRepository) AddResult(_ context.Context, result *core.QuizResult) error {
	if err := r.s.checkOpen(); err != nil {
		return err
	}
	if result.ID == "" {
		result.ID = core.NewID()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	return translate(r.s.store.Insert(result.ID, result))
}

func (r *quizRepository) Results(_ context.Context, quizID string) ([]*core.QuizResult, error) {
	if err := r.s.checkOpen(); err != nil {
		return nil, err
	}
	var found []core.QuizResult
	if err := r.s.store.Find(&found, badgerhold.Where("QuizID").Eq(quizID).Index("QuizID")); err != nil {
		return nil, translate(err)
	}
	results := make([]*core.QuizResult, len(found))
	for i := range found {
		results[i] = &found[i]
	}
	slices.SortFunc(results, func(a, b *core.QuizResult) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return results, nil
}
