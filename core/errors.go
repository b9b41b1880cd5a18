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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChatMessage indicates a ChatMessage failed validation.
	ErrInvalidChatMessage = errors.New("invalid chat message")

	// ErrInvalidStatus indicates an unknown DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidTransition indicates a status change that would leave a
	// terminal state or move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an unknown Role value.
	ErrInvalidRole = errors.New("invalid role")
)

// Processing errors
var (
	// ErrExtraction indicates that no text could be extracted from a document.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking indicates that chunking produced no chunks.
	ErrChunking = errors.New("chunking produced no chunks")

	// ErrEmbedding indicates an embedding provider failure.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRateLimited indicates the provider rejected a request for rate reasons.
	// Errors wrapping it also match ErrEmbedding.
	ErrRateLimited = rateLimitError{}

	// ErrIndex indicates the vector index is unreachable or misconfigured.
	ErrIndex = errors.New("vector index error")

	// ErrParse indicates generated output could not be parsed into the
	// expected structure.
	ErrParse = errors.New("unable to parse generated output")
)

type rateLimitError struct{}

func (rateLimitError) Error() string { return "rate limited" }

func (rateLimitError) Is(target error) bool { return target == ErrEmbedding }
