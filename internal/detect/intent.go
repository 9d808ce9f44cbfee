package detect

import (
	"sort"
	"strings"
)

// ClassifyIntent resolves the primary intent for lowercase text plus context,
// and up to MaxSecondaryIntents runner-up intents.
//
// Contextual signals short-circuit keyword matching entirely: a customer
// sitting on a cancellation page is stronger evidence than anything they
// typed. Otherwise every category is scored and the maximum wins; evidence
// below IntentScoreFloor defaults to a neutral intent with a fixed moderate
// confidence.
func (r *Ruleset) ClassifyIntent(text string, cc CustomerContext) (Intent, float64, []ScoredIntent) {
	page := strings.ToLower(cc.CurrentPage)
	if strings.Contains(page, "cancel") {
		return IntentCancel, ContextCancelConfidence, nil
	}
	if strings.Contains(page, "pause") || strings.Contains(page, "skip") {
		return IntentPause, ContextPauseConfidence, nil
	}

	scores := make([]float64, len(r.Intents))
	best := -1
	var bestScore float64
	for i, rule := range r.Intents {
		scores[i] = Score(text, rule.Keywords)
		// Strictly greater: ties resolve to the earliest declared category.
		if scores[i] > bestScore {
			bestScore = scores[i]
			best = i
		}
	}

	if best < 0 || bestScore < IntentScoreFloor {
		return IntentNeutral, NeutralConfidence, r.secondaryIntents(scores, -1)
	}

	confidence := bestScore
	if confidence > MaxPrimaryConfidence {
		confidence = MaxPrimaryConfidence
	}
	return r.Intents[best].Category, confidence, r.secondaryIntents(scores, best)
}

// secondaryIntents selects runner-up intents from precomputed category
// scores, excluding the primary. Candidates must clear SecondaryScoreFloor;
// confidence is the score scaled down and capped at MaxSecondaryConfidence.
// The sort is stable so equal confidences keep rule declaration order.
func (r *Ruleset) secondaryIntents(scores []float64, primary int) []ScoredIntent {
	var out []ScoredIntent
	for i, rule := range r.Intents {
		if i == primary || scores[i] <= SecondaryScoreFloor {
			continue
		}
		confidence := scores[i] * SecondaryConfidenceScale
		if confidence > MaxSecondaryConfidence {
			confidence = MaxSecondaryConfidence
		}
		out = append(out, ScoredIntent{Intent: rule.Category, Confidence: confidence})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	if len(out) > MaxSecondaryIntents {
		out = out[:MaxSecondaryIntents]
	}
	return out
}
