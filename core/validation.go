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

import "fmt"

// ValidateDocument validates a Document at a write boundary.
//
// Validation rules:
//   - ID, ProjectID and Filename must not be empty
//   - Status must be one of the known states
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	}
	if doc.ProjectID == "" {
		return fmt.Errorf("%w: project id is empty", ErrInvalidDocument)
	}
	if doc.Filename == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidDocument)
	}
	if !doc.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidStatus, doc.Status)
	}
	return nil
}

// ValidateRole checks that r is user or assistant.
func ValidateRole(r Role) error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRole, r)
}

// ValidateChatMessage validates a ChatMessage according to domain rules.
// Assistant turns may be empty when generation produced no text; user turns may not.
func ValidateChatMessage(msg *ChatMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidChatMessage)
	}
	if msg.ProjectID == "" {
		return fmt.Errorf("%w: project id is empty", ErrInvalidChatMessage)
	}
	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChatMessage, err)
	}
	if msg.Role == RoleUser && msg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatMessage, ErrEmptyContent)
	}
	return nil
}
