package detect

// Classification policy constants. Threshold tuning happens here, not in
// control flow.
const (
	// Context short-circuit confidences: the customer's location in a flow
	// is stronger evidence than word choice.
	ContextCancelConfidence = 0.90
	ContextPauseConfidence  = 0.85

	// Below this keyword score, evidence defaults to a neutral intent.
	IntentScoreFloor = 0.30

	// Fixed confidence reported with a neutral default: "no strong signal",
	// not "no signal at all".
	NeutralConfidence = 0.50

	// The classifier never reports full certainty.
	MaxPrimaryConfidence = 0.95

	// Secondary intent selection.
	SecondaryScoreFloor      = 0.20
	SecondaryConfidenceScale = 0.80
	MaxSecondaryConfidence   = 0.70
	MaxSecondaryIntents      = 3

	// Cancel reason confidence ceiling.
	MaxCancelReasonConfidence = 0.90

	// Intervention trigger floors (strict greater-than).
	CancelTriggerConfidence         = 0.50
	PauseDowngradeTriggerConfidence = 0.60

	// Customers above this lifetime value escalate complaint/pause urgency.
	HighValueLifetimeValue = 500.0
)

// Sentiment level thresholds.
const (
	VeryNegativeThreshold = -0.5
	NegativeThreshold     = -0.2
	PositiveThreshold     = 0.2
	VeryPositiveThreshold = 0.5
)

// Per-match sentiment deltas for the four keyword tiers.
const (
	VeryNegativeDelta = -0.4
	NegativeDelta     = -0.2
	PositiveDelta     = 0.2
	VeryPositiveDelta = 0.4
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
