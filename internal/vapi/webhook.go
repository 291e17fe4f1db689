package vapi

import "strings"

// Webhook payload shapes for the voice platform's server messages. Keep this
// adapter-only: business logic does not live here, and unknown fields are
// deliberately ignored.

// Event types we care about. Only the end-of-call report carries a final
// transcript; status updates arrive while the call is still running.
const (
	EventEndOfCallReport = "end-of-call-report"
	EventStatusUpdate    = "status-update"
)

type WebhookEnvelope struct {
	Message WebhookMessage `json:"message"`
}

type WebhookMessage struct {
	Type     string   `json:"type"`
	Customer Customer `json:"customer"`
	Artifact Artifact `json:"artifact"`
}

type Customer struct {
	Number string `json:"number"`
}

type Artifact struct {
	Transcript string `json:"transcript"`
}

// SecretHeader is the header the platform sends the shared secret in.
const SecretHeader = "x-vapi-secret"

// SecretMatches checks a provided shared secret against the configured one.
// Comparison is case-insensitive; an empty configured secret never matches.
func SecretMatches(provided, configured string) bool {
	if configured == "" || provided == "" {
		return false
	}
	return strings.EqualFold(provided, configured)
}
