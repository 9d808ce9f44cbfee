package detect

import (
	"math"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ===========================================================================
// Keyword scoring
// ===========================================================================

func TestScore_EmptyText(t *testing.T) {
	if got := Score("", []string{"cancel", "stop"}); got != 0 {
		t.Errorf("Expected 0 for empty text, got %f", got)
	}
}

func TestScore_EmptyKeywords(t *testing.T) {
	if got := Score("cancel everything", nil); got != 0 {
		t.Errorf("Expected 0 for empty keyword set, got %f", got)
	}
}

func TestScore_WholeWordBonus(t *testing.T) {
	kws := []string{"cancel", "stop", "end", "quit"}

	// Whole-word match: 1 + 0.5 bonus, normalized by sqrt(4).
	if got := Score("please cancel", kws); !approxEqual(got, 0.75) {
		t.Errorf("Expected 0.75 for whole-word match, got %f", got)
	}

	// Substring-only match: no bonus.
	if got := Score("cancellation", kws); !approxEqual(got, 0.5) {
		t.Errorf("Expected 0.5 for substring-only match, got %f", got)
	}
}

func TestScore_CappedAtOne(t *testing.T) {
	kws := []string{"charged twice", "refund", "charge"}
	got := Score("i was charged twice please refund", kws)
	if got != 1 {
		t.Errorf("Expected score capped at 1, got %f", got)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		kw   string
		want bool
	}{
		{"cancel now", "cancel", true},
		{"please cancel", "cancel", true},
		{"cancel", "cancel", true},
		{"cancellation", "cancel", false},
		{"precancel", "cancel", false},
		// An early unbounded occurrence must not mask a later bounded one.
		{"cancellation cancel", "cancel", true},
		{"stop my subscription", "stop my subscription", true},
	}
	for _, tt := range tests {
		if got := containsWord(tt.text, tt.kw); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
		}
	}
}

// ===========================================================================
// Sentiment
// ===========================================================================

func TestAnalyzeSentiment_VeryNegative(t *testing.T) {
	sentiment, score := DefaultRules.AnalyzeSentiment("this is terrible and i hate it")
	if sentiment != SentimentVeryNegative {
		t.Errorf("Expected very_negative, got %s", sentiment)
	}
	if !approxEqual(score, -0.8) {
		t.Errorf("Expected score -0.8, got %f", score)
	}
}

func TestAnalyzeSentiment_Positive(t *testing.T) {
	sentiment, score := DefaultRules.AnalyzeSentiment("thanks this is good")
	if sentiment != SentimentPositive {
		t.Errorf("Expected positive, got %s", sentiment)
	}
	if !approxEqual(score, 0.4) {
		t.Errorf("Expected score 0.4, got %f", score)
	}
}

func TestAnalyzeSentiment_VeryPositive(t *testing.T) {
	sentiment, _ := DefaultRules.AnalyzeSentiment("love it absolutely amazing")
	if sentiment != SentimentVeryPositive {
		t.Errorf("Expected very_positive, got %s", sentiment)
	}
}

func TestAnalyzeSentiment_NeutralOnEmpty(t *testing.T) {
	sentiment, score := DefaultRules.AnalyzeSentiment("")
	if sentiment != SentimentNeutral || score != 0 {
		t.Errorf("Expected (neutral, 0), got (%s, %f)", sentiment, score)
	}
}

func TestAnalyzeSentiment_ClampedAtMinusOne(t *testing.T) {
	_, score := DefaultRules.AnalyzeSentiment("terrible horrible awful worst hate scam")
	if score != -1 {
		t.Errorf("Expected score clamped to -1, got %f", score)
	}
}

// ===========================================================================
// Intent classification
// ===========================================================================

func TestClassifyIntent_CancelPageShortCircuit(t *testing.T) {
	cc := CustomerContext{CurrentPage: "/account/cancel"}
	intent, confidence, secondary := DefaultRules.ClassifyIntent("i love this service", cc)
	if intent != IntentCancel {
		t.Errorf("Expected cancel from page context, got %s", intent)
	}
	if confidence != ContextCancelConfidence {
		t.Errorf("Expected confidence %f, got %f", ContextCancelConfidence, confidence)
	}
	if secondary != nil {
		t.Errorf("Expected no secondary intents on short-circuit, got %v", secondary)
	}
}

func TestClassifyIntent_PausePageShortCircuit(t *testing.T) {
	cc := CustomerContext{CurrentPage: "/subscription/pause"}
	intent, confidence, _ := DefaultRules.ClassifyIntent("", cc)
	if intent != IntentPause || confidence != ContextPauseConfidence {
		t.Errorf("Expected (pause, %f), got (%s, %f)", ContextPauseConfidence, intent, confidence)
	}
}

func TestClassifyIntent_CancelKeyword(t *testing.T) {
	intent, confidence, _ := DefaultRules.ClassifyIntent("i want to cancel my subscription", CustomerContext{})
	if intent != IntentCancel {
		t.Errorf("Expected cancel, got %s", intent)
	}
	want := 1.5 / math.Sqrt(8)
	if !approxEqual(confidence, want) {
		t.Errorf("Expected confidence %f, got %f", want, confidence)
	}
}

func TestClassifyIntent_Question(t *testing.T) {
	intent, confidence, _ := DefaultRules.ClassifyIntent("how do i update my shipping address", CustomerContext{})
	if intent != IntentQuestion {
		t.Errorf("Expected question, got %s", intent)
	}
	want := 1.5 / math.Sqrt(7)
	if !approxEqual(confidence, want) {
		t.Errorf("Expected confidence %f, got %f", want, confidence)
	}
}

func TestClassifyIntent_PaymentIssueCapped(t *testing.T) {
	intent, confidence, _ := DefaultRules.ClassifyIntent("i was charged twice this month please refund", CustomerContext{})
	if intent != IntentPaymentIssue {
		t.Errorf("Expected payment_issue, got %s", intent)
	}
	if confidence != MaxPrimaryConfidence {
		t.Errorf("Expected confidence capped at %f, got %f", MaxPrimaryConfidence, confidence)
	}
}

func TestClassifyIntent_NeutralOnEmpty(t *testing.T) {
	intent, confidence, secondary := DefaultRules.ClassifyIntent("", CustomerContext{})
	if intent != IntentNeutral || confidence != NeutralConfidence {
		t.Errorf("Expected (neutral, %f), got (%s, %f)", NeutralConfidence, intent, confidence)
	}
	if len(secondary) != 0 {
		t.Errorf("Expected no secondary intents, got %v", secondary)
	}
}

func TestClassifyIntent_NeutralBelowFloor(t *testing.T) {
	intent, confidence, _ := DefaultRules.ClassifyIntent("just checking in about my order", CustomerContext{})
	if intent != IntentNeutral || confidence != NeutralConfidence {
		t.Errorf("Expected neutral default, got (%s, %f)", intent, confidence)
	}
}

func TestClassifyIntent_TieResolvesToEarlierRule(t *testing.T) {
	// "terrible" and "cancel" both score 1.5/sqrt(8); cancel is declared
	// first so it wins the tie.
	intent, _, secondary := DefaultRules.ClassifyIntent("this is terrible i want to cancel", CustomerContext{})
	if intent != IntentCancel {
		t.Errorf("Expected cancel on tie, got %s", intent)
	}
	if len(secondary) == 0 || secondary[0].Intent != IntentComplaint {
		t.Errorf("Expected complaint as top secondary, got %v", secondary)
	}
	wantSecondary := 1.5 / math.Sqrt(8) * SecondaryConfidenceScale
	if !approxEqual(secondary[0].Confidence, wantSecondary) {
		t.Errorf("Expected secondary confidence %f, got %f", wantSecondary, secondary[0].Confidence)
	}
}

func TestClassifyIntent_SecondaryLimit(t *testing.T) {
	text := "cancel this terrible subscription i want a refund and a cheaper plan and i will pause everything"
	_, _, secondary := DefaultRules.ClassifyIntent(text, CustomerContext{})
	if len(secondary) > MaxSecondaryIntents {
		t.Errorf("Expected at most %d secondary intents, got %d", MaxSecondaryIntents, len(secondary))
	}
	for _, si := range secondary {
		if si.Confidence > MaxSecondaryConfidence {
			t.Errorf("Secondary confidence %f exceeds cap %f", si.Confidence, MaxSecondaryConfidence)
		}
	}
}

// ===========================================================================
// Cancel reason
// ===========================================================================

func TestClassifyCancelReason_TooExpensive(t *testing.T) {
	reason, confidence := DefaultRules.ClassifyCancelReason("cancelling because it's too expensive")
	if reason != ReasonTooExpensive {
		t.Errorf("Expected too_expensive, got %s", reason)
	}
	if confidence != MaxCancelReasonConfidence {
		t.Errorf("Expected confidence capped at %f, got %f", MaxCancelReasonConfidence, confidence)
	}
}

func TestClassifyCancelReason_NotUsing(t *testing.T) {
	reason, _ := DefaultRules.ClassifyCancelReason("i'm not using it enough")
	if reason != ReasonNotUsing {
		t.Errorf("Expected not_using, got %s", reason)
	}
}

func TestClassifyCancelReason_OtherOnNoMatch(t *testing.T) {
	reason, confidence := DefaultRules.ClassifyCancelReason("goodbye")
	if reason != ReasonOther || confidence != 0 {
		t.Errorf("Expected (other, 0), got (%s, %f)", reason, confidence)
	}
}

// ===========================================================================
// Urgency
// ===========================================================================

func TestResolveUrgency(t *testing.T) {
	highValue := CustomerContext{LifetimeValue: 750}
	tests := []struct {
		name      string
		intent    Intent
		sentiment Sentiment
		cc        CustomerContext
		want      Urgency
	}{
		{"cancel very negative", IntentCancel, SentimentVeryNegative, CustomerContext{}, UrgencyCritical},
		{"cancel neutral", IntentCancel, SentimentNeutral, CustomerContext{}, UrgencyHigh},
		{"high value complaint", IntentComplaint, SentimentNeutral, highValue, UrgencyHigh},
		{"high value pause", IntentPause, SentimentNeutral, highValue, UrgencyHigh},
		{"payment issue", IntentPaymentIssue, SentimentNeutral, CustomerContext{}, UrgencyHigh},
		{"complaint very negative", IntentComplaint, SentimentVeryNegative, CustomerContext{}, UrgencyHigh},
		{"complaint negative", IntentComplaint, SentimentNegative, CustomerContext{}, UrgencyMedium},
		{"pause low value", IntentPause, SentimentNeutral, CustomerContext{}, UrgencyMedium},
		{"downgrade", IntentDowngrade, SentimentNeutral, CustomerContext{}, UrgencyMedium},
		{"question", IntentQuestion, SentimentNeutral, CustomerContext{}, UrgencyLow},
		{"neutral", IntentNeutral, SentimentNeutral, CustomerContext{}, UrgencyLow},
		// The lifetime value boundary is strict greater-than.
		{"boundary value complaint", IntentComplaint, SentimentNeutral, CustomerContext{LifetimeValue: 500}, UrgencyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveUrgency(tt.intent, tt.sentiment, tt.cc); got != tt.want {
				t.Errorf("ResolveUrgency(%s, %s) = %s, want %s", tt.intent, tt.sentiment, got, tt.want)
			}
		})
	}
}

// ===========================================================================
// Intervention decision table
// ===========================================================================

func TestDecideIntervention(t *testing.T) {
	tests := []struct {
		name        string
		intent      Intent
		confidence  float64
		sentiment   Sentiment
		wantTrigger bool
		wantType    string
	}{
		{"cancel above floor", IntentCancel, 0.51, SentimentNeutral, true, InterventionSaveFlow},
		{"cancel at floor", IntentCancel, 0.50, SentimentNeutral, false, ""},
		{"pause above floor", IntentPause, 0.61, SentimentNeutral, true, InterventionPauseOffer},
		{"pause at floor", IntentPause, 0.60, SentimentNeutral, false, ""},
		{"downgrade above floor", IntentDowngrade, 0.61, SentimentNeutral, true, InterventionRetentionOffer},
		{"complaint negative", IntentComplaint, 0.40, SentimentNegative, true, InterventionSupportEscalation},
		{"complaint very negative", IntentComplaint, 0.40, SentimentVeryNegative, true, InterventionSupportEscalation},
		{"complaint neutral sentiment", IntentComplaint, 0.90, SentimentNeutral, false, ""},
		{"payment issue any confidence", IntentPaymentIssue, 0.01, SentimentPositive, true, InterventionPaymentRecovery},
		{"question never triggers", IntentQuestion, 0.95, SentimentVeryNegative, false, ""},
		{"neutral never triggers", IntentNeutral, 0.95, SentimentNeutral, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, itype := DecideIntervention(tt.intent, tt.confidence, tt.sentiment)
			if trigger != tt.wantTrigger || itype != tt.wantType {
				t.Errorf("DecideIntervention(%s, %f, %s) = (%v, %q), want (%v, %q)",
					tt.intent, tt.confidence, tt.sentiment, trigger, itype, tt.wantTrigger, tt.wantType)
			}
		})
	}
}

// ===========================================================================
// Customer context derivation
// ===========================================================================

func TestCustomerProfile_Context(t *testing.T) {
	var nilProfile *CustomerProfile
	cc := nilProfile.Context("/pricing", "")
	if cc.TenureMonths != 0 || cc.LifetimeValue != 0 {
		t.Errorf("Expected zero context for nil profile, got %+v", cc)
	}
	if cc.CurrentPage != "/pricing" {
		t.Errorf("Expected page to carry through, got %q", cc.CurrentPage)
	}
}
