// Package detect implements the retention-intelligence core for Churnsight.
//
// Free-form customer text is classified into an intent, an optional
// cancellation reason, a sentiment level, and an urgency level, and a
// decision table determines whether a retention intervention should fire.
// All classification is deterministic keyword matching against rule tables;
// absence of signal degrades to neutral defaults rather than errors.
package detect

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDetectionNotFound = errors.New("detection not found")
)

// Intent is the classified purpose behind a piece of customer text.
type Intent string

const (
	IntentCancel          Intent = "cancel"
	IntentPause           Intent = "pause"
	IntentDowngrade       Intent = "downgrade"
	IntentUpgrade         Intent = "upgrade"
	IntentComplaint       Intent = "complaint"
	IntentQuestion        Intent = "question"
	IntentPaymentIssue    Intent = "payment_issue"
	IntentBillingQuestion Intent = "billing_question"
	IntentFeedback        Intent = "feedback"
	IntentRenew           Intent = "renew"
	IntentReferral        Intent = "referral"
	IntentNeutral         Intent = "neutral"
	IntentUnknown         Intent = "unknown"
)

// Sentiment is a discrete sentiment level.
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

// Urgency is the escalation priority assigned to a detection.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// CancelReason is the classified reason behind a cancel or pause intent.
type CancelReason string

const (
	ReasonTooExpensive       CancelReason = "too_expensive"
	ReasonNotUsing           CancelReason = "not_using"
	ReasonMissingFeatures    CancelReason = "missing_features"
	ReasonSwitchedCompetitor CancelReason = "switched_competitor"
	ReasonTechnicalIssues    CancelReason = "technical_issues"
	ReasonPoorSupport        CancelReason = "poor_support"
	ReasonTooComplicated     CancelReason = "too_complicated"
	ReasonTemporaryBreak     CancelReason = "temporary_break"
	ReasonFinancialHardship  CancelReason = "financial_hardship"
	ReasonMoving             CancelReason = "moving"
	ReasonProductQuality     CancelReason = "product_quality"
	ReasonShippingIssues     CancelReason = "shipping_issues"
	ReasonTooManyEmails      CancelReason = "too_many_emails"
	ReasonDuplicateAccount   CancelReason = "duplicate_account"
	ReasonOther              CancelReason = "other"
)

// Source identifies the channel the analyzed text arrived through.
type Source string

const (
	SourceWeb   Source = "web"
	SourceVoice Source = "voice"
	SourceChat  Source = "chat"
	SourceEmail Source = "email"
	SourceAPI   Source = "api"
)

// ScoredIntent is a secondary intent candidate with its confidence.
type ScoredIntent struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult is the immutable outcome of analyzing one input.
type DetectionResult struct {
	ID                     string         `json:"id"`
	CustomerID             string         `json:"customerId"`
	SessionID              string         `json:"sessionId,omitempty"`
	CompanyID              string         `json:"companyId"`
	PrimaryIntent          Intent         `json:"primaryIntent"`
	PrimaryConfidence      float64        `json:"primaryConfidence"`
	SecondaryIntents       []ScoredIntent `json:"secondaryIntents,omitempty"`
	CancelReason           CancelReason   `json:"cancelReason,omitempty"`
	CancelReasonConfidence float64        `json:"cancelReasonConfidence,omitempty"`
	Sentiment              Sentiment      `json:"sentiment"`
	SentimentScore         float64        `json:"sentimentScore"`
	Urgency                Urgency        `json:"urgency"`
	Source                 Source         `json:"source"`
	SourceData             map[string]any `json:"sourceData,omitempty"`
	DetectedAt             time.Time      `json:"detectedAt"`
}

// DetectIntentInput is the request to analyze one piece of customer text.
// Either Text or Transcript supplies the analyzed string; empty is valid.
type DetectIntentInput struct {
	CustomerID    string         `json:"customerId" binding:"required"`
	CompanyID     string         `json:"companyId" binding:"required"`
	SessionID     string         `json:"sessionId,omitempty"`
	Text          string         `json:"text,omitempty"`
	Transcript    string         `json:"transcript,omitempty"`
	CurrentPage   string         `json:"currentPage,omitempty"`
	CurrentAction string         `json:"currentAction,omitempty"`
	Source        Source         `json:"source"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CustomerProfile is the raw customer context fetched from the commerce
// backend: signup date plus historical order totals.
type CustomerProfile struct {
	SignupAt    time.Time
	OrderTotals []float64
}

// CustomerContext is the derived context the classifiers consume.
// A zero value means "no context": the high-value urgency rule cannot fire.
type CustomerContext struct {
	TenureMonths  int
	LifetimeValue float64
	CurrentPage   string
	CurrentAction string
}

// ContextProvider fetches customer profiles. Returning (nil, nil) means the
// customer is unknown; detection proceeds with no context.
type ContextProvider interface {
	CustomerProfile(ctx context.Context, companyID, customerID string) (*CustomerProfile, error)
}

// ListQuery filters a detection listing.
type ListQuery struct {
	CustomerID string
	Intent     Intent
	From       time.Time
	To         time.Time
	Limit      int
	Cursor     string

	// After is the decoded keyset position; stores return detections
	// strictly after it in (detected_at DESC, id ASC) order. Filled by the
	// service from Cursor, never by callers.
	After *ListPosition
}

// ListPosition identifies a row in the detection listing order.
type ListPosition struct {
	DetectedAt time.Time
	ID         string
}

// Store persists detection results, keyed by company.
type Store interface {
	Insert(ctx context.Context, result *DetectionResult) error
	Get(ctx context.Context, id string) (*DetectionResult, error)
	List(ctx context.Context, companyID string, q ListQuery) ([]*DetectionResult, error)
}

// IntentDetectedEvent is the domain event published once per detection.
type IntentDetectedEvent struct {
	Detection                 *DetectionResult `json:"detection"`
	ShouldTriggerIntervention bool             `json:"shouldTriggerIntervention"`
	InterventionType          string           `json:"interventionType,omitempty"`
}

// Context derives the classifier context from a profile and request fields.
// A nil profile yields zero tenure and lifetime value.
func (p *CustomerProfile) Context(currentPage, currentAction string) CustomerContext {
	cc := CustomerContext{CurrentPage: currentPage, CurrentAction: currentAction}
	if p == nil {
		return cc
	}
	if !p.SignupAt.IsZero() {
		days := int(time.Since(p.SignupAt).Hours() / 24)
		if days > 0 {
			cc.TenureMonths = days / 30
		}
	}
	for _, total := range p.OrderTotals {
		cc.LifetimeValue += total
	}
	return cc
}
