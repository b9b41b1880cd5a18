package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/badger"
)

const validReply = `Here is your quiz:
[
  {
    "question": "What carries genetic information?",
    "options": [
      {"option": "A", "text": "DNA"},
      {"option": "B", "text": "Lipids"},
      {"option": "C", "text": "Starch"},
      {"option": "D", "text": "Water"}
    ],
    "correct_answer": "A",
    "explanation": "**DNA** stores hereditary information."
  },
  {
    "question": "Where is ATP produced?",
    "options": [
      {"option": "A", "text": "Nucleus"},
      {"option": "B", "text": "Mitochondria"},
      {"option": "C", "text": "Ribosome"},
      {"option": "D", "text": "Vacuole"}
    ],
    "correct_answer": "B",
    "explanation": "Mitochondria produce most ATP."
  },
]`

type stubRetriever struct {
	context string
	err     error
	reqs    []retrieval.Request
}

func (s *stubRetriever) Retrieve(_ context.Context, req retrieval.Request) (*retrieval.Result, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &retrieval.Result{Context: s.context}, nil
}

type fixture struct {
	repos     *badger.Repositories
	retriever *stubRetriever
	generator *mock.MockGenerator
	quizzes   *Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	r := &stubRetriever{context: "Cells contain DNA.\n\nMitochondria make ATP."}
	gen := mock.NewMockGenerator()
	gen.Reply = validReply
	g, err := NewGenerator(repos.Quizzes, r, gen)
	require.NoError(t, err)
	return &fixture{repos: repos, retriever: r, generator: gen, quizzes: g}
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(nil, &stubRetriever{}, mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrQuizRepositoryRequired)
	_, err = NewGenerator(nil, nil, nil)
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	t.Run("with topic", func(t *testing.T) {
		f := newFixture(t)
		quiz, err := f.quizzes.Generate(context.Background(), Request{ProjectID: "p1", Topic: "Cell biology", DocumentIDs: []string{"d1"}})
		require.NoError(t, err)

		assert.NotEmpty(t, quiz.ID)
		assert.Equal(t, "Cell biology", quiz.Topic)
		require.Len(t, quiz.Questions, 2)
		assert.Equal(t, "B", quiz.Questions[1].CorrectAnswer)
		assert.Equal(t, core.QuizOption{Option: "A", Text: "DNA"}, quiz.Questions[0].Options[0])

		req := f.retriever.reqs[0]
		assert.Equal(t, "project_p1", req.Collection)
		assert.Equal(t, "Cell biology", req.Query)
		assert.True(t, req.Expand)
		assert.Equal(t, DefaultBudget, req.Budget)
		assert.Equal(t, []string{"d1"}, req.DocumentIDs)

		call := f.generator.Calls()[0]
		assert.Equal(t, 3000, call.Options.MaxTokens)
		prompt := call.Messages[0].Content
		assert.Contains(t, prompt, "generate 5 multiple-choice questions")
		assert.Contains(t, prompt, "Topic: Cell biology")
		assert.Contains(t, prompt, "Mitochondria make ATP.")

		stored, err := f.repos.Quizzes.GetQuiz(context.Background(), quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, quiz.Questions, stored.Questions)
	})

	t.Run("without topic uses general seeds", func(t *testing.T) {
		f := newFixture(t)
		quiz, err := f.quizzes.Generate(context.Background(), Request{ProjectID: "p1", Count: 2})
		require.NoError(t, err)

		assert.Equal(t, GeneralTopic, quiz.Topic)
		req := f.retriever.reqs[0]
		assert.Equal(t, GeneralSeeds, req.Seeds)
		assert.False(t, req.Expand)
		assert.Contains(t, f.generator.Calls()[0].Messages[0].Content, "Topic: General Review")
	})

	t.Run("retrieval failure still generates", func(t *testing.T) {
		f := newFixture(t)
		f.retriever.err = errors.New("index down")
		_, err := f.quizzes.Generate(context.Background(), Request{ProjectID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.generator.CallCount())
	})

	t.Run("negative count", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.quizzes.Generate(context.Background(), Request{ProjectID: "p1", Count: -1})
		assert.ErrorIs(t, err, ErrInvalidCount)
	})

	t.Run("unparseable reply is not stored", func(t *testing.T) {
		f := newFixture(t)
		f.generator.Reply = "Sorry, I cannot help with that."
		_, err := f.quizzes.Generate(context.Background(), Request{ProjectID: "p1"})
		assert.ErrorIs(t, err, core.ErrParse)
	})
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    int
		wantErr bool
	}{
		{"valid with trailing comma", validReply, 2, false},
		{"fenced", "```json\n[{\"question\":\"q\",\"options\":[],\"correct_answer\":\"A\",\"explanation\":\"e\"}]\n```", 1, false},
		{"missing explanation", `[{"question":"q","options":[],"correct_answer":"A"}]`, 0, true},
		{"one bad item fails all", `[{"question":"q","options":[],"correct_answer":"A","explanation":"e"},{"question":"q2"}]`, 0, true},
		{"empty array", `[]`, 0, true},
		{"no json", "no quiz today", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := ParseQuestions(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Len(t, questions, tt.want)
		})
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz, err := f.quizzes.Generate(ctx, Request{ProjectID: "p1"})
	require.NoError(t, err)

	result, err := f.quizzes.Submit(ctx, quiz.ID, map[int]string{0: " a ", 1: "C"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.Total)
	assert.InDelta(t, 50.0, result.Percentage, 1e-9)
	require.Len(t, result.Feedback, 2)
	assert.Equal(t, core.QuizFeedback{
		QuestionNumber: 2,
		Question:       "Where is ATP produced?",
		UserAnswer:     "C",
		CorrectAnswer:  "B",
		IsCorrect:      false,
		Explanation:    "Mitochondria produce most ATP.",
	}, result.Feedback[1])
	assert.True(t, result.Feedback[0].IsCorrect)

	results, err := f.repos.Quizzes.Results(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, result.ID, results[0].ID)

	_, err = f.quizzes.Submit(ctx, "missing", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGrade(t *testing.T) {
	quiz := &core.Quiz{Questions: []core.QuizQuestion{
		{CorrectAnswer: "A"}, {CorrectAnswer: "B"}, {CorrectAnswer: "C"},
	}}

	tests := []struct {
		name    string
		answers map[int]string
		score   int
		pct     float64
	}{
		{"all correct", map[int]string{0: "A", 1: "B", 2: "C"}, 3, 100},
		{"one of three rounds", map[int]string{0: "A"}, 1, 33.33},
		{"two of three rounds", map[int]string{0: "A", 1: "b"}, 2, 66.67},
		{"unanswered", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Grade(quiz, tt.answers)
			assert.Equal(t, tt.score, result.Score)
			assert.Equal(t, 3, result.Total)
			assert.InDelta(t, tt.pct, result.Percentage, 1e-9)
		})
	}

	empty := Grade(&core.Quiz{}, nil)
	assert.Zero(t, empty.Percentage)
	assert.Empty(t, empty.Feedback)
}
