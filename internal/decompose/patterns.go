package decompose

import (
	"strings"
	"unicode"

	"github.com/kestrelops/hive/pkg/models"
)

// TaskPattern describes a recognized objective shape: a type tag, a
// match confidence, and the capabilities its work requires.
type TaskPattern struct {
	// Name identifies the pattern, e.g. "api-development".
	Name string
	// Confidence is the base match strength in (0,1].
	Confidence float64
	// Keywords trigger the pattern when found in the objective text.
	Keywords []string
	// RequiredCapabilities lists what the generated work needs.
	RequiredCapabilities []models.Capability
}

// domainPatterns is the fixed keyword table objectives are matched
// against. Order is the tie-break when confidences are equal.
var domainPatterns = []TaskPattern{
	{
		Name:                 "api-development",
		Confidence:           0.9,
		Keywords:             []string{"api", "endpoint", "rest", "server", "http", "backend", "service"},
		RequiredCapabilities: []models.Capability{models.CapCodeGeneration, models.CapAPIIntegration},
	},
	{
		Name:                 "web-development",
		Confidence:           0.85,
		Keywords:             []string{"web", "frontend", "ui", "website", "page", "app"},
		RequiredCapabilities: []models.Capability{models.CapCodeGeneration},
	},
	{
		Name:                 "testing-automation",
		Confidence:           0.85,
		Keywords:             []string{"test", "tests", "testing", "qa", "coverage", "regression"},
		RequiredCapabilities: []models.Capability{models.CapTesting},
	},
	{
		Name:                 "research-analysis",
		Confidence:           0.8,
		Keywords:             []string{"research", "analyze", "analysis", "investigate", "study", "compare", "evaluate"},
		RequiredCapabilities: []models.Capability{models.CapResearch, models.CapAnalysis},
	},
	{
		Name:                 "documentation",
		Confidence:           0.75,
		Keywords:             []string{"document", "documentation", "docs", "readme", "guide"},
		RequiredCapabilities: []models.Capability{models.CapDocumentation},
	},
	{
		Name:                 "integration",
		Confidence:           0.7,
		Keywords:             []string{"integrate", "integration", "connect", "webhook", "sync"},
		RequiredCapabilities: []models.Capability{models.CapCodeGeneration, models.CapAPIIntegration},
	},
}

// PatternNames lists the names in the domain pattern table, in table
// order.
func PatternNames() []string {
	names := make([]string, len(domainPatterns))
	for i, p := range domainPatterns {
		names[i] = p.Name
	}
	return names
}

// ConfidenceAdjuster tunes a pattern's base confidence from observed
// outcomes. Implementations must return a value in (0,1].
type ConfidenceAdjuster interface {
	Adjust(pattern string, base float64) float64
}

// extractKeywords lowercases the description and splits it into
// alphanumeric words.
func extractKeywords(description string) []string {
	return strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchPatterns returns every domain pattern whose keywords appear in
// the description, with confidences run through the adjuster when one
// is set.
func matchPatterns(description string, adjuster ConfidenceAdjuster) []TaskPattern {
	words := extractKeywords(description)
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}

	var matched []TaskPattern
	for _, p := range domainPatterns {
		for _, kw := range p.Keywords {
			if _, ok := seen[kw]; ok {
				m := p
				if adjuster != nil {
					m.Confidence = adjuster.Adjust(p.Name, p.Confidence)
				}
				matched = append(matched, m)
				break
			}
		}
	}
	return matched
}

// bestPattern picks the highest-confidence pattern from table matches
// plus externally detected patterns. Returns false if nothing matched.
func bestPattern(matched, detected []TaskPattern) (TaskPattern, bool) {
	all := append(append([]TaskPattern{}, matched...), detected...)
	if len(all) == 0 {
		return TaskPattern{}, false
	}
	best := all[0]
	for _, p := range all[1:] {
		if p.Confidence > best.Confidence {
			best = p
		}
	}
	return best, true
}
