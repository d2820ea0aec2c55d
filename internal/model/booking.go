package model

import "time"

// Booking groups the seats a user reserved for one show together with
// the payment state. AmountCents is always computed server-side from
// the show's unit price; a client-supplied amount is never trusted.
// IsPaid is monotonic: once true it is never reset, which is what makes
// webhook delivery and the client confirmation fallback safe to race.
//
// Fields:
//  ID          – uuid primary key.
//  UserID      – identity-provider user id of the buyer.
//  ShowID      – referenced show.
//  Seats       – booked seat labels (non-empty, distinct).
//  AmountCents – price_cents × len(Seats), fixed at creation.
//  IsPaid      – payment-confirmed flag, false until reconciliation.
//  PaymentLink – hosted checkout URL, cleared once paid.
//  SessionID   – checkout session id, cleared once paid.
//  CreatedAt   – creation timestamp; the expiry window counts from here.
type Booking struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ShowID      string    `json:"show_id"`
	Seats       []string  `json:"seats"`
	AmountCents uint32    `json:"amount_cents"`
	IsPaid      bool      `json:"is_paid"`
	PaymentLink string    `json:"payment_link,omitempty"`
	SessionID   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
