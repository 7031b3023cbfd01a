package simulated

import (
	"context"
	"regexp"
	"strings"

	"github.com/poiesic/minutia/core"
)

var projectPattern = regexp.MustCompile(`\b[Pp]roject\s+([A-Z][\w-]*)`)

// departmentKeywords is scanned in order; the first department with the
// most hits wins.
var departmentKeywords = []struct {
	department string
	keywords   []string
}{
	{"Engineering", []string{"deploy", "release", "bug", "api", "code", "backend", "frontend", "database", "sprint"}},
	{"Marketing", []string{"campaign", "brand", "launch", "seo", "social", "audience"}},
	{"Sales", []string{"customer", "deal", "pipeline", "quota", "prospect", "contract"}},
	{"Finance", []string{"budget", "revenue", "invoice", "forecast", "expense", "cost"}},
	{"HR", []string{"hiring", "onboarding", "candidate", "interview", "payroll"}},
}

// MetadataExtractor guesses metadata from keywords. Fields it cannot
// determine are left empty.
type MetadataExtractor struct{}

// ExtractMetadata never fails.
func (MetadataExtractor) ExtractMetadata(ctx context.Context, transcript string) (*core.Metadata, error) {
	md := &core.Metadata{}
	if m := projectPattern.FindStringSubmatch(transcript); m != nil {
		md.ProjectName = m[1]
	}
	md.Department = guessDepartment(transcript)
	return md, nil
}

func guessDepartment(transcript string) string {
	counts := make(map[string]int)
	for _, token := range tokenize(transcript) {
		for _, d := range departmentKeywords {
			for _, kw := range d.keywords {
				if token == kw {
					counts[d.department]++
				}
			}
		}
	}

	best, bestCount := "", 0
	for _, d := range departmentKeywords {
		if counts[d.department] > bestCount {
			best, bestCount = d.department, counts[d.department]
		}
	}
	return strings.TrimSpace(best)
}
