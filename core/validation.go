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
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - OwnerID must be non-zero
//
// NOT validated:
//   - Fragments (a document may be stored before chunking runs; malformed
//     fragments are skipped at ranking time instead)
//   - Summary (optional)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentName)
	}

	if doc.OwnerID == 0 {
		return fmt.Errorf("%w: owner id is zero", ErrInvalidDocument)
	}

	return nil
}

// ValidateFragment checks that a fragment vector is usable for similarity
// scoring. A dims of 0 skips the dimensionality check.
func ValidateFragment(frag *FragmentVector, dims int) error {
	if frag == nil {
		return fmt.Errorf("%w: fragment is nil", ErrMalformedFragment)
	}

	if len(frag.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformedFragment)
	}

	if dims > 0 && len(frag.Vector) != dims {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedFragment, len(frag.Vector), dims)
	}

	return nil
}

// ValidateChatTurn validates a ChatTurn according to domain rules.
//
// Validation rules:
//   - Contents must not be empty
//   - SpeakerType must be valid (Human or AI)
//   - Timestamp must not be in the future
func ValidateChatTurn(turn *ChatTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrEmptyContent)
	}

	if turn.Contents == "" {
		return ErrEmptyContent
	}

	if err := ValidateSpeakerType(turn.Speaker); err != nil {
		return err
	}

	if !IsValidTimestamp(turn.Timestamp) {
		return ErrInvalidTimestamp
	}

	return nil
}

// ValidateSpeakerType validates that a SpeakerType has a valid value.
func ValidateSpeakerType(speaker SpeakerType) error {
	if speaker != SpeakerTypeHuman && speaker != SpeakerTypeAI {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeakerType, speaker)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
