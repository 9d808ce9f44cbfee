package detect

// ClassifyCancelReason resolves the cancellation reason for lowercase text.
// Only meaningful when the primary intent is cancel or pause; the caller
// enforces that. Maximum category score wins; when nothing scores above
// zero the reason is ReasonOther with zero confidence.
func (r *Ruleset) ClassifyCancelReason(text string) (CancelReason, float64) {
	best := -1
	var bestScore float64
	for i, rule := range r.CancelReasons {
		score := Score(text, rule.Keywords)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 || bestScore <= 0 {
		return ReasonOther, 0
	}

	confidence := bestScore
	if confidence > MaxCancelReasonConfidence {
		confidence = MaxCancelReasonConfidence
	}
	return r.CancelReasons[best].Category, confidence
}
