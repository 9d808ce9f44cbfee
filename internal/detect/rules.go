package detect

// CategoryRule associates one category with its keyword set. Rule order is
// significant: ties between categories resolve to the earliest declared, and
// secondary-intent sorting is stable over this order.
type CategoryRule[T ~string] struct {
	Category T        `json:"category"`
	Keywords []string `json:"keywords"`
}

// SentimentTier is one weighted keyword tier for sentiment scanning.
type SentimentTier struct {
	Delta    float64  `json:"delta"`
	Keywords []string `json:"keywords"`
}

// Ruleset is the full data-driven rule table the classifiers run against.
// Categories can be added or re-weighted without touching the scoring
// algorithms.
type Ruleset struct {
	Intents        []CategoryRule[Intent]
	CancelReasons  []CategoryRule[CancelReason]
	SentimentTiers []SentimentTier
}

// DefaultRules is the built-in rule table.
var DefaultRules = &Ruleset{
	Intents: []CategoryRule[Intent]{
		{IntentCancel, []string{
			"cancel", "cancellation", "unsubscribe", "stop my subscription",
			"end my subscription", "close my account", "terminate", "done with this",
		}},
		{IntentPause, []string{
			"pause", "skip", "hold off", "take a break",
			"skip this month", "snooze", "suspend", "put on hold",
		}},
		{IntentDowngrade, []string{
			"downgrade", "cheaper plan", "smaller plan",
			"basic plan", "lower tier", "reduce my plan",
		}},
		{IntentUpgrade, []string{
			"upgrade", "premium", "bigger plan",
			"higher tier", "add more", "more credits",
		}},
		{IntentComplaint, []string{
			"terrible", "awful", "unacceptable", "worst",
			"disappointed", "not happy", "frustrated", "complaint",
		}},
		{IntentQuestion, []string{
			"how do i", "how can i", "where do i", "where can i",
			"what is", "when will", "can you explain",
		}},
		{IntentPaymentIssue, []string{
			"charged twice", "double charged", "overcharged", "refund",
			"payment failed", "card declined", "billing error", "wrong amount", "charge",
		}},
		{IntentBillingQuestion, []string{
			"invoice", "receipt", "billing date", "payment method",
			"update my card", "change my card", "billing question",
		}},
		{IntentFeedback, []string{
			"feedback", "suggestion", "feature request",
			"would be great", "wish you", "love to see",
		}},
		{IntentRenew, []string{
			"renew", "reactivate", "resubscribe",
			"come back", "restart my subscription", "sign back up",
		}},
		{IntentReferral, []string{
			"referral", "refer a friend", "invite a friend",
			"tell a friend", "gift card", "share with friends",
		}},
	},
	CancelReasons: []CategoryRule[CancelReason]{
		{ReasonTooExpensive, []string{
			"too expensive", "expensive", "price", "cost", "afford", "cheaper",
		}},
		{ReasonNotUsing, []string{
			"not using", "don't use", "never use", "barely use", "don't need",
		}},
		{ReasonMissingFeatures, []string{
			"missing", "doesn't have", "lacks", "no integration", "need a feature",
		}},
		{ReasonSwitchedCompetitor, []string{
			"competitor", "switched to", "found another", "better option", "another service",
		}},
		{ReasonTechnicalIssues, []string{
			"bug", "broken", "doesn't work", "crashes", "errors", "glitch",
		}},
		{ReasonPoorSupport, []string{
			"support", "no response", "customer service", "ignored", "unhelpful",
		}},
		{ReasonTooComplicated, []string{
			"complicated", "confusing", "hard to use", "difficult", "overwhelming",
		}},
		{ReasonTemporaryBreak, []string{
			"for now", "temporarily", "taking a break", "maybe later", "busy",
		}},
		{ReasonFinancialHardship, []string{
			"lost my job", "can't afford", "tight on money", "financial", "budget",
		}},
		{ReasonMoving, []string{
			"moving", "relocating", "out of the country", "new address",
		}},
		{ReasonProductQuality, []string{
			"quality", "damaged", "defective", "stale", "poor quality",
		}},
		{ReasonShippingIssues, []string{
			"shipping", "delivery", "late", "never arrived", "lost package",
		}},
		{ReasonTooManyEmails, []string{
			"too many emails", "spam", "too many notifications", "stop emailing",
		}},
		{ReasonDuplicateAccount, []string{
			"duplicate", "two accounts", "already have an account", "second account",
		}},
	},
	SentimentTiers: []SentimentTier{
		{VeryNegativeDelta, []string{
			"terrible", "horrible", "awful", "worst", "hate",
			"furious", "scam", "disgusted", "unacceptable",
		}},
		{NegativeDelta, []string{
			"bad", "disappointed", "unhappy", "frustrated", "annoyed",
			"broken", "slow", "poor", "wrong",
		}},
		{PositiveDelta, []string{
			"good", "nice", "helpful", "thanks", "thank you",
			"happy", "pleased", "appreciate",
		}},
		{VeryPositiveDelta, []string{
			"love", "amazing", "excellent", "fantastic",
			"awesome", "perfect", "best",
		}},
	},
}
