package domain

import "encoding/json"

// NotificationType enumerates the closed set of lifecycle event kinds carried
// on the bus. Adding a kind means adding a constant here and a case to every
// switch over the type; there is no free-form tag.
type NotificationType string

const (
	NotifyAnalysisComplete NotificationType = "analysis_complete"
	NotifyAnalysisFailed   NotificationType = "analysis_failed"
	NotifyFaceNotDetected  NotificationType = "face_not_detected"
	NotifyAnalysisRefusal  NotificationType = "ai_analysis_refusal"
	NotifyFunnelMessage    NotificationType = "funnel_message"
	NotifyNewReferral      NotificationType = "new_referral"
	NotifyPaymentReceived  NotificationType = "payment_received"
)

// Known reports whether t is one of the declared notification kinds.
func (t NotificationType) Known() bool {
	switch t {
	case NotifyAnalysisComplete, NotifyAnalysisFailed, NotifyFaceNotDetected,
		NotifyAnalysisRefusal, NotifyFunnelMessage, NotifyNewReferral, NotifyPaymentReceived:
		return true
	}
	return false
}

// Notification is the discriminated envelope published on the bus. Write-once,
// fire-and-forget; delivery is at-most-once and publishers never block on
// downstream consumption.
type Notification struct {
	Type       NotificationType `json:"type"`
	UserID     string           `json:"user_id"`
	ChatRef    int64            `json:"chat_ref"`
	MessageRef int              `json:"message_ref,omitempty"`
	AnalysisID string           `json:"analysis_id,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}

// CompletePayload carries the success fields.
type CompletePayload struct {
	Summary      string `json:"summary,omitempty"`
	Description  string `json:"description"`
	CardImageRef string `json:"card_image_ref,omitempty"`
}

// FailurePayload carries the terminal error for failed analyses.
type FailurePayload struct {
	Error string `json:"error"`
}

// FunnelPayload carries the broadcast message body.
type FunnelPayload struct {
	Body string `json:"body"`
}
