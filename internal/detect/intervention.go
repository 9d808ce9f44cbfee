package detect

// Intervention type names exposed to downstream consumers. These appear in
// webhook payloads and metrics labels, so renaming one is a breaking change.
const (
	InterventionSaveFlow          = "save_flow"
	InterventionPauseOffer        = "pause_offer"
	InterventionRetentionOffer    = "retention_offer"
	InterventionSupportEscalation = "support_escalation"
	InterventionPaymentRecovery   = "payment_recovery"
)

// DecideIntervention maps a classified detection onto at most one
// intervention. Confidence gates differ per intent: cancel fires at a lower
// bar than pause or downgrade because the cost of missing a cancel is higher
// than the cost of an unnecessary save flow.
func DecideIntervention(intent Intent, confidence float64, sentiment Sentiment) (bool, string) {
	switch intent {
	case IntentCancel:
		if confidence > CancelTriggerConfidence {
			return true, InterventionSaveFlow
		}
	case IntentPause:
		if confidence > PauseDowngradeTriggerConfidence {
			return true, InterventionPauseOffer
		}
	case IntentDowngrade:
		if confidence > PauseDowngradeTriggerConfidence {
			return true, InterventionRetentionOffer
		}
	case IntentComplaint:
		if sentiment == SentimentNegative || sentiment == SentimentVeryNegative {
			return true, InterventionSupportEscalation
		}
	case IntentPaymentIssue:
		return true, InterventionPaymentRecovery
	}
	return false, ""
}
