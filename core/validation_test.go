package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateTranscript(t *testing.T) {
	if err := ValidateTranscript("Alice will send the report."); err != nil {
		t.Errorf("ValidateTranscript() error = %v, want nil", err)
	}
	for _, transcript := range []string{"", "   ", "\n\t"} {
		if err := ValidateTranscript(transcript); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("ValidateTranscript(%q) error = %v, want %v", transcript, err, ErrEmptyTranscript)
		}
	}
}

func TestValidateChunk(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{Text: "hello", ProjectName: "Apollo", Date: now},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "whitespace text",
			chunk:   &Chunk{Text: "  ", ProjectName: "Apollo"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "missing project",
			chunk:   &Chunk{Text: "hello"},
			wantErr: ErrEmptyProject,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{Text: "hello", ProjectName: "Apollo", Index: -1},
			wantErr: ErrInvalidChunk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIndexRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *IndexRecord
		wantErr error
	}{
		{name: "valid", record: &IndexRecord{ID: "a-b-0", Vector: []float32{1}}},
		{name: "nil", record: nil, wantErr: ErrInvalidRecord},
		{name: "no id", record: &IndexRecord{Vector: []float32{1}}, wantErr: ErrInvalidRecord},
		{name: "no vector", record: &IndexRecord{ID: "a-b-0"}, wantErr: ErrEmptyVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateIndexRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateIndexRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeInsights(t *testing.T) {
	t.Run("nil becomes default overview", func(t *testing.T) {
		got := NormalizeInsights(nil)
		if got.Overview != DefaultOverview {
			t.Errorf("Overview = %q, want %q", got.Overview, DefaultOverview)
		}
		if got.ToDoList == nil || len(got.ToDoList) != 0 {
			t.Errorf("ToDoList = %v, want empty non-nil list", got.ToDoList)
		}
	})

	t.Run("cleans items", func(t *testing.T) {
		got := NormalizeInsights(&Insights{
			Overview: "ok",
			ToDoList: []ToDoItem{
				{Person: " Alice ", Task: "send report", Type: "ACTION"},
				{Person: "Bob", Task: "  ", Type: ItemTypeAction},
				{Person: "Carol", Task: "note", Type: "idea"},
			},
		})
		if len(got.ToDoList) != 2 {
			t.Fatalf("len(ToDoList) = %d, want 2", len(got.ToDoList))
		}
		if got.ToDoList[0].Person != "Alice" || got.ToDoList[0].Type != ItemTypeAction {
			t.Errorf("unexpected first item %+v", got.ToDoList[0])
		}
		if got.ToDoList[1].Type != ItemTypeTakeaway {
			t.Errorf("unknown type should become takeaway, got %q", got.ToDoList[1].Type)
		}
	})
}

func TestFillMetadataDefaults(t *testing.T) {
	transcript := strings.Repeat("x", 250)

	t.Run("nil uses defaults", func(t *testing.T) {
		got := FillMetadataDefaults(nil, transcript)
		if got.ProjectName != DefaultProjectName || got.Department != DefaultDepartment {
			t.Errorf("unexpected defaults %+v", got)
		}
		if len(got.SearchString) != SearchStringLength {
			t.Errorf("search string length = %d, want %d", len(got.SearchString), SearchStringLength)
		}
	})

	t.Run("partial fills empty fields only", func(t *testing.T) {
		got := FillMetadataDefaults(&Metadata{ProjectName: "Apollo", Department: " "}, "short")
		want := Metadata{ProjectName: "Apollo", Department: DefaultDepartment, SearchString: "short"}
		if got != want {
			t.Errorf("FillMetadataDefaults() = %+v, want %+v", got, want)
		}
	})
}

func TestPrefix_CountsRunes(t *testing.T) {
	if got := Prefix("héllo wörld", 4); got != "héll" {
		t.Errorf("Prefix() = %q, want %q", got, "héll")
	}
	if got := Prefix("abc", 10); got != "abc" {
		t.Errorf("Prefix() = %q, want %q", got, "abc")
	}
}

func TestValidateQuery(t *testing.T) {
	valid := RetrievalQuery{ProjectName: "Apollo", Department: "Engineering", SearchQuery: "budget"}
	if err := ValidateQuery(valid); err != nil {
		t.Errorf("ValidateQuery() error = %v, want nil", err)
	}

	tests := []struct {
		name  string
		query RetrievalQuery
	}{
		{"missing project", RetrievalQuery{Department: "Engineering", SearchQuery: "budget"}},
		{"missing department", RetrievalQuery{ProjectName: "Apollo", SearchQuery: "budget"}},
		{"blank search", RetrievalQuery{ProjectName: "Apollo", Department: "Engineering", SearchQuery: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateQuery(tt.query); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, ErrInvalidQuery)
			}
		})
	}
}
