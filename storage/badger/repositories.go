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


package badger

import "github.com/poiesic/lectern/storage"

// Repositories groups every repository sharing one Store.
type Repositories struct {
	Store     *Store
	Documents storage.DocumentRepository
	Chat      storage.ChatRepository
	Quizzes   storage.QuizRepository
	Summaries storage.SummaryRepository
}

// Close closes the underlying store.
func (r *Repositories) Close() error {
	return r.Store.Close()
}

// NewRepositories builds all repositories over s.
func NewRepositories(s *Store) (*Repositories, error) {
	docs, err := NewDocumentRepository(s)
	if err != nil {
		return nil, err
	}
	chat, err := NewChatRepository(s)
	if err != nil {
		return nil, err
	}
	quizzes, err := NewQuizRepository(s)
	if err != nil {
		return nil, err
	}
	summaries, err := NewSummaryRepository(s)
	if err != nil {
		return nil, err
	}
	return &Repositories{Store: s, Documents: docs, Chat: chat, Quizzes: quizzes, Summaries: summaries}, nil
}

// OpenRepositories opens a store at filePath and builds all repositories.
func OpenRepositories(filePath string, inMemory bool) (*Repositories, error) {
	s, err := OpenStore(filePath, inMemory)
	if err != nil {
		return nil, err
	}
	repos, err := NewRepositories(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return repos, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}
