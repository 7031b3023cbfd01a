package storage

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/poiesic/minutia/core"
)

// CheckDim returns ErrDimensionMismatch unless len(v) == dim.
func CheckDim(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, store expects %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

// ValidateRecords checks every record and its dimension before a write.
func ValidateRecords(dim int, records []*core.IndexRecord) error {
	for _, r := range records {
		if err := core.ValidateIndexRecord(r); err != nil {
			return err
		}
		if err := CheckDim(r.Vector, dim); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	return nil
}

// ValidateQuery checks the request against the store dimension.
func ValidateQuery(req QueryRequest, dim int) error {
	if req.TopK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidQuery, req.TopK)
	}
	if !req.AllNamespaces && req.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidQuery)
	}
	return CheckDim(req.Vector, dim)
}

// MetadataFields flattens metadata into the string map used by filters
// and string-only backends.
func MetadataFields(md core.RecordMetadata) map[string]string {
	return map[string]string{
		FieldProjectName: md.ProjectName,
		FieldDepartment:  md.Department,
		FieldDate:        md.Date,
		FieldChunkIndex:  strconv.Itoa(md.ChunkIndex),
		FieldText:        md.Text,
	}
}

// ParseMetadataFields is the inverse of MetadataFields. A malformed chunk
// index reads as zero.
func ParseMetadataFields(fields map[string]string) core.RecordMetadata {
	idx, _ := strconv.Atoi(fields[FieldChunkIndex])
	return core.RecordMetadata{
		ProjectName: fields[FieldProjectName],
		Department:  fields[FieldDepartment],
		Date:        fields[FieldDate],
		ChunkIndex:  idx,
		Text:        fields[FieldText],
	}
}

// MatchesFilter reports whether md satisfies every filter entry.
func MatchesFilter(md core.RecordMetadata, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	fields := MetadataFields(md)
	for k, v := range filter {
		if fields[k] != v {
			return false
		}
	}
	return true
}

// RankMatches orders matches by score descending, then ID ascending, and
// keeps at most k.
func RankMatches(matches []core.Match, k int) []core.Match {
	slices.SortFunc(matches, func(a, b core.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
