package threat

import (
	"context"
	"regexp"
	"strings"
)

// MaxSamples and MaxSampleLength bound the evidence kept per family.
const (
	MaxSamples      = 3
	MaxSampleLength = 50
)

// Match is the evidence for one family that matched at least once.
type Match struct {
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Matches    int      `json:"matches"`
	Weight     int      `json:"weight"`
	ScoreAdded int      `json:"score_added"`
	Samples    []string `json:"samples"`
}

// Report is the detector output: the accumulated score and one Match per
// matching family, in catalog order.
type Report struct {
	Score   int
	Matches []Match
}

// Detector scores text against a catalog.
type Detector struct {
	catalog *Catalog
}

// NewDetector returns a detector over catalog. A nil catalog means Default().
func NewDetector(catalog *Catalog) *Detector {
	if catalog == nil {
		catalog = Default()
	}
	return &Detector{catalog: catalog}
}

// Catalog returns the catalog the detector scores against.
func (d *Detector) Catalog() *Catalog {
	return d.catalog
}

// Detect runs every family against text. Matches of all of a family's
// patterns are pooled. A count-multiplier family contributes
// weight × min(matches, MaxMultiplier); any other family contributes its
// weight once, however many times it matched.
//
// Detect checks ctx between families and returns ctx.Err() if the run was
// abandoned.
func (d *Detector) Detect(ctx context.Context, text string) (Report, error) {
	report := Report{Matches: []Match{}}

	for _, f := range d.catalog.families {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		var samples []string
		count := 0
		for _, re := range f.compiled {
			for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
				if len(samples) < MaxSamples {
					samples = append(samples, truncateRunes(sampleText(re, text, loc), MaxSampleLength))
				}
				count++
			}
		}
		if count == 0 {
			continue
		}

		added := f.Weight
		if f.CountMultiplier {
			added = f.Weight * min(count, MaxMultiplier)
		}
		report.Score += added

		report.Matches = append(report.Matches, Match{
			Type:       f.ID,
			Category:   f.Category,
			Matches:    count,
			Weight:     f.Weight,
			ScoreAdded: added,
			Samples:    samples,
		})
	}

	return report, nil
}

// sampleText renders one match the way the evidence has always been shown:
// the whole match for a pattern without groups, the group text for a
// single group, and a tuple of group texts otherwise.
func sampleText(re *regexp.Regexp, text string, loc []int) string {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	switch n := re.NumSubexp(); n {
	case 0:
		return group(0)
	case 1:
		return group(1)
	default:
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = "'" + group(i) + "'"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
