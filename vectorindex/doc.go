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


// Package vectorindex defines the contract lectern uses to store and search
// chunk embeddings.
//
// A collection holds one project's vectors. Every point carries a Payload
// with the owning document, its display name, the chunk's global index and
// the chunk text. Collections are created idempotently by EnsureCollection,
// which also guarantees payload indexes on document_id (keyword) and
// chunk_id (integer) exist.
//
// Search and Scroll against a collection that does not exist return an empty
// result. Delete never returns an error; implementations log failures so that
// record deletion is never blocked by the vector store.
//
// Implementations:
//
//   - vectorindex/qdrant: Qdrant over its REST API
//   - vectorindex/memory: in-process brute-force cosine search
package vectorindex
