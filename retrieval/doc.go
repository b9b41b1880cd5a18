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


// Package retrieval gathers context for generation from a project's vector
// collection.
//
// A seed query is expanded into a few alternative phrasings by the language
// model. Every query is embedded and searched in parallel, the hits are
// merged in query order with exact-text duplicates dropped, and the result
// is truncated to a chunk budget. An empty merge is a valid outcome: the
// context is simply empty.
package retrieval
