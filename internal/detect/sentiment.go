package detect

import "strings"

// AnalyzeSentiment scores lowercase text against the four weighted keyword
// tiers and maps the summed score to a discrete level. Unlike intent
// scoring, this is a plain additive scan: every matching keyword contributes
// its tier delta and the total is not normalized by tier size. The score is
// clamped to [-1, 1].
func (r *Ruleset) AnalyzeSentiment(text string) (Sentiment, float64) {
	var score float64
	for _, tier := range r.SentimentTiers {
		for _, kw := range tier.Keywords {
			if strings.Contains(text, kw) {
				score += tier.Delta
			}
		}
	}

	score = clamp(score, -1, 1)

	switch {
	case score <= VeryNegativeThreshold:
		return SentimentVeryNegative, score
	case score <= NegativeThreshold:
		return SentimentNegative, score
	case score >= VeryPositiveThreshold:
		return SentimentVeryPositive, score
	case score >= PositiveThreshold:
		return SentimentPositive, score
	default:
		return SentimentNeutral, score
	}
}
