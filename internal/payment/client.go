// Package payment wraps the Stripe checkout API and the verification
// of the webhook events Stripe sends back. Stripe hosts the payment
// page; this service only opens sessions scoped to a booking amount
// and later reconciles their outcome.
package payment

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// SessionStatusPaid is the payment_status value of a settled session.
const SessionStatusPaid = string(stripe.CheckoutSessionPaymentStatusPaid)

// Client opens and queries hosted checkout sessions.
type Client struct{}

// New configures the Stripe secret key and returns a Client.
func New(apiKey string) *Client {
	stripe.Key = apiKey
	return &Client{}
}

// Session is the slice of a hosted checkout session the booking flows
// use. The json tags match the raw webhook object so completion events
// decode straight into it. Metadata round-trips opaque correlation
// data; this service stores the booking id under the "booking_id" key.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// CreateSessionRequest carries everything needed to open a session.
// ExpiresAt bounds how long the hosted page stays payable.
type CreateSessionRequest struct {
	AmountCents uint32
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
	ExpiresAt   int64
}

// CreateSession opens a hosted checkout session with a single line
// item covering the whole booking and returns its id and redirect URL.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ExpiresAt:  stripe.Int64(req.ExpiresAt),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(int64(req.AmountCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
		Metadata: req.Metadata,
	}
	params.Context = ctx
	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripe(s), nil
}

// GetSession fetches one session by id. Used by the client-confirmation
// fallback to re-check payment status directly with Stripe.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(s), nil
}

// ListSessionsByIntent returns the sessions created for a payment
// intent. Completion events keyed by intent id are resolved back to a
// booking through the first session's metadata.
func (c *Client) ListSessionsByIntent(ctx context.Context, intentID string) ([]Session, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	iter := session.List(params)
	var out []Session
	for iter.Next() {
		out = append(out, *fromStripe(iter.CheckoutSession()))
	}
	return out, iter.Err()
}

func fromStripe(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out
}
