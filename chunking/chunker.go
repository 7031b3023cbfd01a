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


// Package chunking splits transcripts into overlapping segments sized for
// embedding models.
//
// Splitting is recursive on paragraph, line, word and character boundaries
// and is deterministic: the same transcript always yields the same chunk
// boundaries, which keeps index record IDs stable across re-indexing.
package chunking

import (
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/minutia/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 100
)

// Meta scopes the chunks produced from one transcript.
type Meta struct {
	ProjectName string
	Department  string
	Date        time.Time
}

// Chunker splits text with a recursive character splitter.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	logger   *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithSize overrides chunk size and overlap.
func WithSize(size, overlap int) Option {
	return func(c *Chunker) error {
		if size <= 0 {
			return ErrInvalidChunkSize
		}
		if overlap < 0 || overlap >= size {
			return ErrInvalidOverlap
		}
		c.splitter.ChunkSize = size
		c.splitter.ChunkOverlap = overlap
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a chunker with 500 character chunks and 100 characters of overlap.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(DefaultChunkSize),
			textsplitter.WithChunkOverlap(DefaultChunkOverlap),
		),
		logger: slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Split returns the non-empty segments of text in order.
// Whitespace-only segments are dropped and the rest are trimmed.
func (c *Chunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

// Texts lazily yields the segments of text. Each range over the returned
// sequence splits the text again, so the sequence can be consumed any
// number of times with identical results.
func (c *Chunker) Texts(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		parts, err := c.Split(text)
		if err != nil {
			c.logger.Error("failed to split text", "length", len(text), "err", err)
			return
		}
		for _, part := range parts {
			if !yield(part) {
				return
			}
		}
	}
}

// Chunks lazily yields the transcript's chunks with consecutive indices
// starting at zero, stamped with meta.
func (c *Chunker) Chunks(transcript string, meta Meta) iter.Seq[core.Chunk] {
	return func(yield func(core.Chunk) bool) {
		index := 0
		for text := range c.Texts(transcript) {
			chunk := core.Chunk{
				Text:        text,
				Index:       index,
				ProjectName: meta.ProjectName,
				Department:  meta.Department,
				Date:        meta.Date,
			}
			if !yield(chunk) {
				return
			}
			index++
		}
	}
}
