package payment

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Webhook event types the reconciliation flow dispatches on.
const (
	EventSessionCompleted = string(stripe.EventTypeCheckoutSessionCompleted)
	EventIntentSucceeded  = string(stripe.EventTypePaymentIntentSucceeded)
)

// SignatureHeader is the HTTP header carrying the webhook signature.
// The identity provider's sync webhook uses the same header and scheme.
const SignatureHeader = "Stripe-Signature"

// ErrInvalidSignature is returned when a webhook signature header is
// missing, malformed, stale or does not match the payload. Handlers
// must treat it as fatal for the request; the provider retries delivery
// on its own schedule.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is the envelope of a provider webhook delivery. Data.Object
// holds the event-specific payload and is decoded after dispatching on
// Type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Intent is the payload of a payment_intent event.
type Intent struct {
	ID string `json:"id"`
}

// ConstructEvent verifies the signature header against the raw body
// using the shared webhook secret and, only if it matches, parses the
// event.
func ConstructEvent(body []byte, sigHeader, secret string) (*Event, error) {
	se, err := webhook.ConstructEvent(body, sigHeader, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	ev := &Event{ID: se.ID, Type: string(se.Type)}
	if se.Data != nil {
		ev.Data.Object = se.Data.Raw
	}
	return ev, nil
}

// VerifySignature checks a signature header against a raw body without
// decoding the payload. The identity sync webhook shares the signature
// scheme but not the Stripe event envelope, so its handler verifies
// with this and decodes on its own.
func VerifySignature(body []byte, sigHeader, secret string) error {
	if err := webhook.ValidatePayload(body, sigHeader, secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign produces a signature header for the given body and timestamp.
// The identity provider signs its deliveries this way, and tests use
// it to build valid ones.
func Sign(body []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, body, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}
