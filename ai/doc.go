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


// Package ai provides abstractions for the AI services lectern calls.
//
// The package defines three interfaces:
//
//   - Embedder: generates vector embeddings from text (batch and single)
//   - Generator: produces replies, either complete or as streamed deltas
//   - AIProvider: aggregates both for shared configuration and lifecycle
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//   - ai/structured: extraction of JSON values from free-form replies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types. Test constructors (mock.NewMockEmbedder,
// mock.NewMockGenerator) return concrete types so tests can inject behaviour
// through function fields and assert on call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	gen := mock.NewMockGenerator()               // returns *mock.MockGenerator
//	gen.CompleteFunc = ...
//
// # Errors
//
// Embedding failures are classified with EmbeddingError so callers can use
// errors.Is with core.ErrRateLimited to decide whether a retry is worthwhile.
package ai
