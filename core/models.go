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

import (
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// collectionPrefix namespaces per-project vector collections.
const collectionPrefix = "project_"

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// CollectionName returns the vector collection that holds a project's chunks.
func CollectionName(projectID string) string {
	return collectionPrefix + projectID
}

// ContentKey derives a stable key from a set of strings using BLAKE2b.
// Order of the input does not matter, so {a, b} and {b, a} produce the same key.
func ContentKey(parts ...string) string {
	sorted := slices.Clone(parts)
	slices.Sort(sorted)
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

// Document is an uploaded file tracked through ingestion.
type Document struct {
	ID        string `badgerhold:"key"`
	ProjectID string `badgerhold:"index"`
	Filename  string
	Status    DocumentStatus
	Message   string
	Topics    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a text fragment with its position in the source document.
// Index is assigned before any batch is dispatched.
type Chunk struct {
	Index int
	Text  string
}

// SearchHit is a single similarity search result.
type SearchHit struct {
	ID           string
	Score        float32
	Text         string
	DocumentID   string
	DocumentName string
	ChunkID      int
}

// Source is a cited document attached to an answer.
type Source struct {
	DocID     string `json:"doc_id"`
	DocName   string `json:"doc_name"`
	ChunkText string `json:"chunk_text"`
}

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a project conversation.
type ChatMessage struct {
	ID        string `badgerhold:"key"`
	ProjectID string `badgerhold:"index"`
	Role      Role
	Content   string
	Sources   []Source
	Seq       uint64 // store-assigned, breaks CreatedAt ties
	CreatedAt time.Time
}
