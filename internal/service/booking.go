// Package service implements the booking, payment-reconciliation,
// catalog-ingestion and notification flows on top of the repositories
// and provider clients. Dependencies are taken as small interfaces so
// the flows can be tested without MySQL or live providers.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// ErrInvalidSeats is returned when the requested seat list is empty,
// contains duplicates or contains malformed labels.
var ErrInvalidSeats = errors.New("invalid seat selection")

// ErrAlreadyPaid is returned when a payment-session refresh is
// requested for a booking that is already confirmed.
var ErrAlreadyPaid = errors.New("booking already paid")

// ErrSessionUnpaid is returned by the client-confirmation fallback when
// the provider reports the session as not (yet) paid.
var ErrSessionUnpaid = errors.New("session not paid")

// BookingStore is the persistence surface the booking flow needs. The
// SQL implementation is repository.BookingRepo; Reserve and Release are
// atomic there, and fakes in tests must preserve that.
type BookingStore interface {
	Reserve(ctx context.Context, b *model.Booking) error
	Release(ctx context.Context, bookingID string) (bool, error)
	MarkPaid(ctx context.Context, bookingID string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	SetPaymentSession(ctx context.Context, bookingID, link, sessionID string) error
}

// ShowGetter reads single shows.
type ShowGetter interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
}

// MovieGetter reads single movies.
type MovieGetter interface {
	GetByID(ctx context.Context, id string) (*model.Movie, error)
}

// CheckoutProvider is the slice of the payment client the flow uses.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req payment.CreateSessionRequest) (*payment.Session, error)
	GetSession(ctx context.Context, id string) (*payment.Session, error)
	ListSessionsByIntent(ctx context.Context, intentID string) ([]payment.Session, error)
}

// EventPublisher publishes the booking flow's broker events.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// BookingService implements seat reservation, payment session
// management, payment reconciliation and the expiry reaper step.
type BookingService struct {
	bookings BookingStore
	shows    ShowGetter
	movies   MovieGetter
	checkout CheckoutProvider
	events   EventPublisher

	sessionExpiry time.Duration
	clientOrigin  string
	log           *zap.Logger
}

// NewBookingService wires a BookingService.
func NewBookingService(
	bookings BookingStore,
	shows ShowGetter,
	movies MovieGetter,
	checkout CheckoutProvider,
	events EventPublisher,
	sessionExpiry time.Duration,
	clientOrigin string,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:      bookings,
		shows:         shows,
		movies:        movies,
		checkout:      checkout,
		events:        events,
		sessionExpiry: sessionExpiry,
		clientOrigin:  clientOrigin,
		log:           log,
	}
}

// Create reserves the requested seats for the user and opens a payment
// session. The amount is always computed here from the show's unit
// price. Seat writes and the booking row are one atomic operation in
// the store; on a conflict a *repository.SeatUnavailableError
// propagates and nothing is persisted. A checkout-provider failure does
// NOT undo the reservation: the booking is returned with an empty
// payment link and the client retries through Refresh. The delayed
// expiry event is published before the provider call so even a crashed
// request cannot leak seats forever.
func (s *BookingService) Create(ctx context.Context, userID, showID string, seats []string) (*model.Booking, error) {
	labels, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		ShowID:      show.ID,
		Seats:       labels,
		AmountCents: show.PriceCents * uint32(len(labels)),
	}
	if err := s.bookings.Reserve(ctx, b); err != nil {
		return nil, err
	}

	if err := s.events.PublishBookingCreated(ctx, queue.BookingCreatedEvent{
		BookingID: b.ID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		// The reservation stands; without the timer the seats would be
		// reclaimed by retention only, so this is worth an error log.
		s.log.Error("expiry event publish failed", zap.String("booking_id", b.ID), zap.Error(err))
	}

	session, err := s.openSession(ctx, b, show.MovieID)
	if err != nil {
		s.log.Warn("checkout session creation failed, booking kept",
			zap.String("booking_id", b.ID), zap.Error(err))
		return b, nil
	}
	b.PaymentLink = session.URL
	b.SessionID = session.ID
	return b, nil
}

// Refresh opens a new checkout session for an unpaid booking whose
// session expired or was never created. Seat occupancy is untouched.
func (s *BookingService) Refresh(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if b.IsPaid {
		return nil, ErrAlreadyPaid
	}
	session, err := s.openSession(ctx, b, "")
	if err != nil {
		return nil, err
	}
	b.PaymentLink = session.URL
	b.SessionID = session.ID
	return b, nil
}

// ConfirmBySession is the client-confirmation fallback: the browser
// returned from the hosted page before (or instead of) the webhook.
// The provider is re-queried; only a session it reports as paid can
// confirm the booking. Racing the webhook is safe because the paid
// transition is idempotent.
func (s *BookingService) ConfirmBySession(ctx context.Context, sessionID string) error {
	session, err := s.checkout.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.PaymentStatus != payment.SessionStatusPaid {
		return ErrSessionUnpaid
	}
	bookingID := session.Metadata["booking_id"]
	if bookingID == "" {
		return repository.ErrBookingNotFound
	}
	return s.settle(ctx, bookingID)
}

// HandleWebhookEvent applies a verified provider event. Unknown event
// types and events without a booking correlation are logged and
// dropped; the provider's own redelivery covers transient failures.
func (s *BookingService) HandleWebhookEvent(ctx context.Context, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventSessionCompleted:
		var session payment.Session
		if err := json.Unmarshal(ev.Data.Object, &session); err != nil {
			return err
		}
		bookingID := session.Metadata["booking_id"]
		if bookingID == "" {
			s.log.Warn("completed session without booking_id metadata", zap.String("event_id", ev.ID))
			return nil
		}
		return s.settle(ctx, bookingID)

	case payment.EventIntentSucceeded:
		var intent payment.Intent
		if err := json.Unmarshal(ev.Data.Object, &intent); err != nil {
			return err
		}
		sessions, err := s.checkout.ListSessionsByIntent(ctx, intent.ID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			s.log.Warn("no session for payment intent", zap.String("intent_id", intent.ID))
			return nil
		}
		bookingID := sessions[0].Metadata["booking_id"]
		if bookingID == "" {
			s.log.Warn("intent session without booking_id metadata", zap.String("intent_id", intent.ID))
			return nil
		}
		return s.settle(ctx, bookingID)

	default:
		s.log.Debug("unhandled webhook event type", zap.String("type", ev.Type))
		return nil
	}
}

// HandleExpiredMessage is the reaper step, invoked when a
// booking.created message falls out of the delay queue. If the booking
// is still unpaid its seats are released and the record deleted; if it
// was paid meanwhile (or already reaped on a redelivery) nothing
// happens.
func (s *BookingService) HandleExpiredMessage(ctx context.Context, body []byte) error {
	var ev queue.BookingCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	released, err := s.bookings.Release(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	if released {
		s.log.Info("unpaid booking reaped", zap.String("booking_id", ev.BookingID))
	}
	return nil
}

// settle marks a booking paid. Only the call that actually performs
// the transition enqueues the notification, so a webhook/fallback race
// produces at most one confirmation event from this process.
func (s *BookingService) settle(ctx context.Context, bookingID string) error {
	transitioned, err := s.bookings.MarkPaid(ctx, bookingID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}
	s.log.Info("booking marked paid", zap.String("booking_id", bookingID))
	if err := s.events.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{BookingID: bookingID}); err != nil {
		s.log.Warn("confirmation event publish failed", zap.String("booking_id", bookingID), zap.Error(err))
	}
	return nil
}

// openSession asks the provider for a hosted checkout session and
// persists its URL on the booking. movieID may be empty (refresh path);
// the description then falls back to a generic one.
func (s *BookingService) openSession(ctx context.Context, b *model.Booking, movieID string) (*payment.Session, error) {
	description := "Movie tickets"
	if movieID == "" {
		if show, err := s.shows.GetByID(ctx, b.ShowID); err == nil {
			movieID = show.MovieID
		}
	}
	if movieID != "" {
		if movie, err := s.movies.GetByID(ctx, movieID); err == nil {
			description = movie.Title
		}
	}
	session, err := s.checkout.CreateSession(ctx, payment.CreateSessionRequest{
		AmountCents: b.AmountCents,
		Currency:    "usd",
		Description: description,
		SuccessURL:  s.clientOrigin + "/loading/my-bookings",
		CancelURL:   s.clientOrigin + "/my-bookings",
		Metadata:    map[string]string{"booking_id": b.ID},
		ExpiresAt:   time.Now().Add(s.sessionExpiry).Unix(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.bookings.SetPaymentSession(ctx, b.ID, session.URL, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// normalizeSeats trims and upper-cases labels and rejects empty lists,
// empty labels and duplicates.
func normalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, ErrInvalidSeats
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, raw := range seats {
		label := strings.ToUpper(strings.TrimSpace(raw))
		if label == "" || len(label) > 8 {
			return nil, ErrInvalidSeats
		}
		if _, dup := seen[label]; dup {
			return nil, ErrInvalidSeats
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}
