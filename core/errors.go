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

var (
	// ErrConfiguration indicates a missing setting or dependency.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyTranscript indicates the transcript has no content.
	ErrEmptyTranscript = errors.New("transcript cannot be empty")

	// ErrMalformedResponse indicates a model returned output that could not be parsed.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrInvalidRecord indicates an IndexRecord failed validation.
	ErrInvalidRecord = errors.New("invalid index record")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates a text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyProject indicates the project name is empty.
	ErrEmptyProject = errors.New("project name cannot be empty")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidQuery indicates a retrieval query is missing required fields.
	ErrInvalidQuery = errors.New("invalid retrieval query")

	// ErrInvalidItemType indicates a to-do item type other than takeaway or action.
	ErrInvalidItemType = errors.New("invalid item type")
)
