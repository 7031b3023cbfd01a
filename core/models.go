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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

const (
	// DefaultProjectName is used when a transcript names no project.
	DefaultProjectName = "General Discussion"
	// DefaultDepartment is used when a transcript names no department.
	DefaultDepartment = "General"
	// DefaultTopK is the number of matches requested per retrieval strategy.
	DefaultTopK = 5
	// SearchStringLength is the rune length of the fallback search string.
	SearchStringLength = 200
	// DefaultOverview replaces an empty generated overview.
	DefaultOverview = "No overview generated"
)

// DateISOLayout is the UTC, millisecond precision layout used in record IDs.
const DateISOLayout = "2006-01-02T15:04:05.000Z"

// DateISO formats t the way record IDs and metadata expect it.
func DateISO(t time.Time) string {
	return t.UTC().Format(DateISOLayout)
}

// ID is a 64-bit numeric identifier derived from content.
type ID uint64

// IDFromContent hashes text into a stable 64-bit ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is a contiguous transcript segment scoped to a project and department.
type Chunk struct {
	Text        string
	Index       int
	ProjectName string
	Department  string
	Date        time.Time
}

// RecordID returns the deterministic index record ID for the chunk.
func (c Chunk) RecordID() string {
	return RecordID(c.ProjectName, c.Date, c.Index)
}

// RecordID builds "{projectName}-{dateISO}-{chunkIndex}".
func RecordID(projectName string, date time.Time, chunkIndex int) string {
	return fmt.Sprintf("%s-%s-%d", projectName, DateISO(date), chunkIndex)
}

// RecordMetadata is stored next to every vector.
type RecordMetadata struct {
	ProjectName string
	Department  string
	Date        string // ISO-8601, see DateISO
	ChunkIndex  int
	Text        string
}

// IndexRecord is a single vector store entry.
type IndexRecord struct {
	ID        string
	Namespace string
	Vector    []float32
	Metadata  RecordMetadata
}

// NewIndexRecord builds the record for an embedded chunk.
// The namespace is the chunk's project name.
func NewIndexRecord(chunk Chunk, vector []float32) *IndexRecord {
	return &IndexRecord{
		ID:        chunk.RecordID(),
		Namespace: chunk.ProjectName,
		Vector:    vector,
		Metadata: RecordMetadata{
			ProjectName: chunk.ProjectName,
			Department:  chunk.Department,
			Date:        DateISO(chunk.Date),
			ChunkIndex:  chunk.Index,
			Text:        chunk.Text,
		},
	}
}

// Match is a ranked vector store hit.
type Match struct {
	ID       string
	Score    float32
	Metadata RecordMetadata
}

// RetrievalQuery describes a context lookup.
type RetrievalQuery struct {
	ProjectName string
	Department  string
	SearchQuery string
	TopK        int
}

// Limit returns TopK, or DefaultTopK when TopK is not positive.
func (q RetrievalQuery) Limit() int {
	if q.TopK <= 0 {
		return DefaultTopK
	}
	return q.TopK
}

// Metadata scopes a transcript for indexing and retrieval.
type Metadata struct {
	ProjectName  string `json:"projectName"`
	Department   string `json:"department"`
	SearchString string `json:"searchString"`
}

// ItemType classifies a to-do list entry.
type ItemType string

const (
	ItemTypeTakeaway ItemType = "takeaway"
	ItemTypeAction   ItemType = "action"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeTakeaway || t == ItemTypeAction
}

// ToDoItem is a single takeaway or action assigned to a person.
type ToDoItem struct {
	Person string   `json:"person"`
	Task   string   `json:"task"`
	Type   ItemType `json:"type"`
}

// Insights is the structured result of analysing one meeting.
type Insights struct {
	Overview string     `json:"overview"`
	ToDoList []ToDoItem `json:"toDoList"`
}

// Texts renders the insights as indexable text segments.
func (i *Insights) Texts() []string {
	texts := make([]string, 0, len(i.ToDoList)+1)
	texts = append(texts, "Overview: "+i.Overview)
	for _, item := range i.ToDoList {
		texts = append(texts, fmt.Sprintf("%s: %s (%s)", item.Person, item.Task, item.Type))
	}
	return texts
}
