package detect

import (
	"math"
	"strings"
)

// Score computes a normalized keyword match score in [0, 1] for lowercase
// text against a keyword set. Each keyword present as a substring counts 1;
// a keyword that also appears as a whole word (bounded by spaces or the
// string edges) earns a 0.5 bonus. The total is divided by the square root
// of the set size so categories with many keywords are not unfairly favored,
// then capped at 1.
//
// Pure and deterministic. Lower-casing is the caller's responsibility.
func Score(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	var matches float64
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			continue
		}
		matches++
		if containsWord(text, kw) {
			matches += 0.5
		}
	}

	score := matches / math.Sqrt(float64(len(keywords)))
	if score > 1 {
		score = 1
	}
	return score
}

// containsWord reports whether kw occurs in text bounded by spaces or the
// string start/end.
func containsWord(text, kw string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(kw)
		startOK := i == 0 || text[i-1] == ' '
		endOK := end == len(text) || text[end] == ' '
		if startOK && endOK {
			return true
		}
		from = i + 1
		if from >= len(text) {
			return false
		}
	}
}
