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


// Package extract turns raw uploaded bytes into plain text.
//
// Extractors are selected by file extension through a Registry. The default
// registry understands plain text, Markdown, HTML, DOCX and PDF. An
// extraction that yields only whitespace is reported as ErrNoText so callers
// can treat "nothing to index" the same way as a decode failure.
package extract
