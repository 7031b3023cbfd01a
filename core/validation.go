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
	"strings"
)

func ValidateTranscript(transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return ErrEmptyTranscript
	}
	return nil
}

func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ProjectName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyProject)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}

	return nil
}

func ValidateIndexRecord(record *IndexRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidRecord)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyVector)
	}

	return nil
}

// ValidateQuery requires the project, department and search text of q.
func ValidateQuery(q RetrievalQuery) error {
	switch {
	case strings.TrimSpace(q.ProjectName) == "":
		return fmt.Errorf("%w: projectName is required", ErrInvalidQuery)
	case strings.TrimSpace(q.Department) == "":
		return fmt.Errorf("%w: department is required", ErrInvalidQuery)
	case strings.TrimSpace(q.SearchQuery) == "":
		return fmt.Errorf("%w: searchQuery is required", ErrInvalidQuery)
	}
	return nil
}

// NormalizeInsights fills the overview default, drops empty entries and
// coerces unknown item types to takeaway.
func NormalizeInsights(insights *Insights) *Insights {
	if insights == nil {
		insights = &Insights{}
	}
	if strings.TrimSpace(insights.Overview) == "" {
		insights.Overview = DefaultOverview
	}

	items := make([]ToDoItem, 0, len(insights.ToDoList))
	for _, item := range insights.ToDoList {
		item.Person = strings.TrimSpace(item.Person)
		item.Task = strings.TrimSpace(item.Task)
		if item.Task == "" {
			continue
		}
		item.Type = ItemType(strings.ToLower(strings.TrimSpace(string(item.Type))))
		if !item.Type.Valid() {
			item.Type = ItemTypeTakeaway
		}
		items = append(items, item)
	}
	insights.ToDoList = items
	return insights
}

// FillMetadataDefaults replaces empty fields with the defaults derived
// from the transcript.
func FillMetadataDefaults(md *Metadata, transcript string) Metadata {
	defaults := DefaultMetadata(transcript)
	if md == nil {
		return defaults
	}

	out := Metadata{
		ProjectName:  strings.TrimSpace(md.ProjectName),
		Department:   strings.TrimSpace(md.Department),
		SearchString: strings.TrimSpace(md.SearchString),
	}
	if out.ProjectName == "" {
		out.ProjectName = defaults.ProjectName
	}
	if out.Department == "" {
		out.Department = defaults.Department
	}
	if out.SearchString == "" {
		out.SearchString = defaults.SearchString
	}
	return out
}

// DefaultMetadata returns the metadata used when extraction is unavailable.
func DefaultMetadata(transcript string) Metadata {
	return Metadata{
		ProjectName:  DefaultProjectName,
		Department:   DefaultDepartment,
		SearchString: Prefix(transcript, SearchStringLength),
	}
}

// Prefix returns at most n runes of s.
func Prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
