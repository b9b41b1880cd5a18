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


// Package rag answers questions against a project's documents.
//
// A Composer persists the user's turn, retrieves context, generates the
// answer and persists the assistant turn with the documents it drew on.
// AskStream does the same while forwarding generated text as it arrives,
// then terminates the stream with SourcesMarker and a JSON array of sources.
// Errors raised once streaming has begun are written inline as text and the
// partial answer is still persisted.
//
// The Summarizer produces a cached overview of a project's documents.
package rag
