// Package queue defines the broker topology and message payloads for
// the deferred parts of the booking flow: the expiry reaper and the
// notification dispatcher. All queues are durable and messages are
// persistent, so pending timers and mail survive broker and process
// restarts. Delivery is at-least-once; every consumer step is
// idempotent.
package queue

// Queue names. BookingDelay carries booking.created messages with a
// per-queue TTL and no consumer; expired messages dead-letter into
// BookingExpired, which is what wakes the reaper after the timeout.
const (
	BookingDelay     = "booking.created.delay"
	BookingExpired   = "booking.expired"
	BookingConfirmed = "booking.confirmed"
	ShowAdded        = "show.added"
)

// BookingCreatedEvent is published when a booking is created. After the
// delay-queue TTL it reaches the reaper, which releases the seats if
// the booking is still unpaid.
type BookingCreatedEvent struct {
	BookingID string `json:"booking_id"`
	CreatedAt string `json:"created_at"`
}

// BookingConfirmedEvent is published when a booking transitions to
// paid. The mail consumer loads the rest from the database.
type BookingConfirmedEvent struct {
	BookingID string `json:"booking_id"`
}

// ShowAddedEvent is published after catalog ingestion creates shows for
// a movie, triggering the announcement mail.
type ShowAddedEvent struct {
	MovieID string `json:"movie_id"`
}
