package core

import "time"

// QuizOption is one lettered choice of a question.
type QuizOption struct {
	Option string `json:"option"`
	Text   string `json:"text"`
}

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question      string       `json:"question"`
	Options       []QuizOption `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

// Quiz is a generated multiple-choice test.
type Quiz struct {
	ID        string         `json:"id" badgerhold:"key"`
	ProjectID string         `json:"project_id" badgerhold:"index"`
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuizFeedback grades one answered question.
type QuizFeedback struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
	UserAnswer     string `json:"user_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation"`
}

// QuizResult is an append-only record of a graded submission.
type QuizResult struct {
	ID         string         `json:"id" badgerhold:"key"`
	QuizID     string         `json:"quiz_id" badgerhold:"index"`
	ProjectID  string         `json:"project_id"`
	Answers    map[int]string `json:"answers"`
	Score      int            `json:"score"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	Feedback   []QuizFeedback `json:"feedback"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Summary is a cached project overview.
type Summary struct {
	Key       string `badgerhold:"key"`
	ProjectID string `badgerhold:"index"`
	Text      string
	Sources   []Source
	CreatedAt time.Time
}
