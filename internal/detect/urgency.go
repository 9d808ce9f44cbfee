package detect

// ResolveUrgency combines intent, sentiment, and customer context into a
// discrete urgency level. Rule order is load-bearing: the high-value and
// payment-issue rules must run before the generic per-intent defaults,
// otherwise a high-value complaining customer would be under-escalated.
func ResolveUrgency(intent Intent, sentiment Sentiment, cc CustomerContext) Urgency {
	switch {
	case intent == IntentCancel && sentiment == SentimentVeryNegative:
		return UrgencyCritical
	case intent == IntentCancel:
		return UrgencyHigh
	case cc.LifetimeValue > HighValueLifetimeValue &&
		(intent == IntentComplaint || intent == IntentPause):
		return UrgencyHigh
	case intent == IntentPaymentIssue:
		return UrgencyHigh
	case intent == IntentComplaint:
		if sentiment == SentimentVeryNegative {
			return UrgencyHigh
		}
		return UrgencyMedium
	case intent == IntentPause, intent == IntentDowngrade:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
