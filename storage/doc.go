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


// Package storage provides the persistence abstraction layer for lectern.
//
// This package defines repository interfaces for the records the engine
// reads and writes: Document status, chat history, quizzes with their
// graded results, and cached project summaries. Vectors are not stored
// here; they belong to a vectorindex.Index.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return interfaces:
//
//	docs, err := badger.NewDocumentRepository(store)  // returns storage.DocumentRepository
//
// # Status Writes
//
// DocumentRepository.UpdateStatus is the single write path for status. It
// validates the move with core.ValidateTransition, so a terminal Document
// can never be reopened and states never move backwards.
//
// # Append-only Records
//
// Chat messages and quiz results are only ever added. Chat messages receive
// a store sequence number so history order is stable even when two turns
// share a timestamp.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
