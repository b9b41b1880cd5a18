// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package quiz generates multiple-choice quizzes from indexed documents and
// grades submitted answers.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/ai/structured"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
)

const (
	// DefaultCount is the number of questions generated when none is requested.
	DefaultCount = 5
	// DefaultBudget is how many chunks of content a quiz is built from.
	DefaultBudget = 15
	// GeneralTopic names quizzes generated without a topic.
	GeneralTopic = "General Quiz"

	quizTemperature = 0.7
	quizMaxTokens   = 3000
)

// GeneralSeeds are the fixed queries used when no topic is given.
var GeneralSeeds = []string{"important concepts", "summary", "key definitions"}

var requiredKeys = []string{"question", "options", "correct_answer", "explanation"}

// Retriever gathers quiz content.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Result, error)
}

var _ Retriever = (*retrieval.Engine)(nil)

// Request describes a quiz to generate.
type Request struct {
	ProjectID string
	// Topic focuses the quiz. Empty means a general review.
	Topic string
	// Count is the number of questions. Zero means DefaultCount.
	Count int
	// DocumentIDs restricts content to these documents when non-empty.
	DocumentIDs []string
}

// Generator builds and grades quizzes.
type Generator struct {
	quizzes   storage.QuizRepository
	retriever Retriever
	generator ai.Generator
	budget    int
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithBudget sets how many chunks are retrieved per quiz. Default is 15.
func WithBudget(n int) Option {
	return func(g *Generator) error {
		if n < 1 {
			n = 1
		}
		g.budget = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates a quiz Generator.
func NewGenerator(quizzes storage.QuizRepository, retriever Retriever, generator ai.Generator, opts ...Option) (*Generator, error) {
	switch {
	case quizzes == nil:
		return nil, ErrQuizRepositoryRequired
	case retriever == nil:
		return nil, ErrRetrieverRequired
	case generator == nil:
		return nil, ErrGeneratorRequired
	}

	g := &Generator{
		quizzes:   quizzes,
		retriever: retriever,
		generator: generator,
		budget:    DefaultBudget,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "quiz")
	return g, nil
}

// Generate creates and stores a quiz. Retrieval failures degrade to a quiz
// generated without content; an unparseable reply fails with core.ErrParse.
func (g *Generator) Generate(ctx context.Context, req Request) (*core.Quiz, error) {
	count := req.Count
	if count == 0 {
		count = DefaultCount
	}
	if count < 0 {
		return nil, ErrInvalidCount
	}

	content := g.content(ctx, req)
	if content == "" {
		g.logger.Warn("no content found, generating generic questions", "project", req.ProjectID)
	}

	topicLine := "Topic: General Review"
	if req.Topic != "" {
		topicLine = "Topic: " + req.Topic
	}
	prompt := fmt.Sprintf(quizPrompt, count, topicLine, content)
	reply, err := g.generator.Complete(ctx, []ai.Message{ai.UserMessage(prompt)},
		ai.WithTemperature(quizTemperature), ai.WithMaxTokens(quizMaxTokens))
	if err != nil {
		return nil, fmt.Errorf("generating quiz: %w", err)
	}

	questions, err := ParseQuestions(reply)
	if err != nil {
		return nil, err
	}

	quiz := &core.Quiz{
		ProjectID: req.ProjectID,
		Topic:     req.Topic,
		Questions: questions,
	}
	if quiz.Topic == "" {
		quiz.Topic = GeneralTopic
	}
	if err := g.quizzes.SaveQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("storing quiz: %w", err)
	}
	g.logger.Info("created quiz", "quiz", quiz.ID, "questions", len(questions))
	return quiz, nil
}

func (g *Generator) content(ctx context.Context, req Request) string {
	rr := retrieval.Request{
		Collection:  core.CollectionName(req.ProjectID),
		Budget:      g.budget,
		DocumentIDs: req.DocumentIDs,
	}
	if req.Topic != "" {
		rr.Query = req.Topic
		rr.Expand = true
	} else {
		rr.Seeds = GeneralSeeds
	}

	result, err := g.retriever.Retrieve(ctx, rr)
	if err != nil {
		g.logger.Error("retrieving quiz content", "project", req.ProjectID, "err", err)
		return ""
	}
	return result.Context
}

// ParseQuestions extracts the first JSON array of questions from a reply.
// Every question must carry all required keys and at least one question must
// be present, otherwise the error wraps core.ErrParse.
func ParseQuestions(reply string) ([]core.QuizQuestion, error) {
	raw, err := structured.ExtractValid(reply, func(items []map[string]json.RawMessage) error {
		if len(items) == 0 {
			return fmt.Errorf("%w: no questions", ErrIncompleteQuestion)
		}
		for i, item := range items {
			for _, key := range requiredKeys {
				if _, ok := item[key]; !ok {
					return fmt.Errorf("%w: question %d has no %q", ErrIncompleteQuestion, i+1, key)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	questions := make([]core.QuizQuestion, len(raw))
	for i, item := range raw {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
		}
		if err := json.Unmarshal(data, &questions[i]); err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", core.ErrParse, i+1, err)
		}
	}
	return questions, nil
}

// Submit grades answers, keyed by zero-based question index, and records the
// result. Unanswered questions count as wrong.
func (g *Generator) Submit(ctx context.Context, quizID string, answers map[int]string) (*core.QuizResult, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	result := Grade(quiz, answers)
	if err := g.quizzes.AddResult(ctx, result); err != nil {
		return nil, fmt.Errorf("storing quiz result: %w", err)
	}
	g.logger.Info("graded quiz", "quiz", quizID, "score", result.Score, "total", result.Total)
	return result, nil
}

// Grade scores answers against a quiz without storing anything.
func Grade(quiz *core.Quiz, answers map[int]string) *core.QuizResult {
	result := &core.QuizResult{
		QuizID:    quiz.ID,
		ProjectID: quiz.ProjectID,
		Answers:   answers,
		Total:     len(quiz.Questions),
		Feedback:  make([]core.QuizFeedback, 0, len(quiz.Questions)),
	}

	for i, q := range quiz.Questions {
		given := answers[i]
		correct := normalizeAnswer(given) != "" && normalizeAnswer(given) == normalizeAnswer(q.CorrectAnswer)
		if correct {
			result.Score++
		}
		result.Feedback = append(result.Feedback, core.QuizFeedback{
			QuestionNumber: i + 1,
			Question:       q.Question,
			UserAnswer:     given,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      correct,
			Explanation:    q.Explanation,
		})
	}

	if result.Total > 0 {
		pct := float64(result.Score) / float64(result.Total) * 100
		result.Percentage = math.Round(pct*100) / 100
	}
	return result
}

func normalizeAnswer(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
