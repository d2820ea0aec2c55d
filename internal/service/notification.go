package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
)

// MailSender sends one HTML mail. The SMTP implementation lives in
// internal/mailer; a nil-config mailer reports Enabled() false and the
// service then skips composition entirely.
type MailSender interface {
	Enabled() bool
	Send(to, subject, htmlBody string) error
}

// UserDirectory is the user persistence slice notifications need.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// NotificationService turns broker events into e-mails. Delivery is
// best effort: a failed mail is logged and the message acked, since the
// booking/show state it announces is already durable.
type NotificationService struct {
	bookings BookingStore
	shows    ShowGetter
	movies   MovieGetter
	users    UserDirectory
	mail     MailSender
	log      *zap.Logger
}

// NewNotificationService wires a NotificationService.
func NewNotificationService(bookings BookingStore, shows ShowGetter, movies MovieGetter, users UserDirectory, mail MailSender, log *zap.Logger) *NotificationService {
	return &NotificationService{bookings: bookings, shows: shows, movies: movies, users: users, mail: mail, log: log}
}

// HandleBookingConfirmed mails the buyer their confirmation.
func (n *NotificationService) HandleBookingConfirmed(ctx context.Context, body []byte) error {
	if !n.mail.Enabled() {
		return nil
	}
	var ev queue.BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	booking, err := n.bookings.GetByID(ctx, ev.BookingID)
	if err != nil {
		return err
	}
	show, err := n.shows.GetByID(ctx, booking.ShowID)
	if err != nil {
		return err
	}
	movie, err := n.movies.GetByID(ctx, show.MovieID)
	if err != nil {
		return err
	}
	user, err := n.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Payment confirmation: %q booked!", movie.Title)
	htmlBody := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
  <h2>Hi %s,</h2>
  <p>Your booking for <strong style="color: #F84565;">%s</strong> is confirmed.</p>
  <p><strong>Date:</strong> %s<br/><strong>Time:</strong> %s</p>
  <p>Enjoy the show! 🍿</p>
</div>`,
		user.Name, movie.Title,
		show.StartsAt.Format("Monday, 2 January 2006"),
		show.StartsAt.Format("15:04 MST"),
	)
	if err := n.mail.Send(user.Email, subject, htmlBody); err != nil {
		n.log.Warn("confirmation mail failed", zap.String("booking_id", booking.ID), zap.Error(err))
	}
	return nil
}

// HandleShowAdded announces a newly scheduled movie to every user.
func (n *NotificationService) HandleShowAdded(ctx context.Context, body []byte) error {
	if !n.mail.Enabled() {
		return nil
	}
	var ev queue.ShowAddedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	movie, err := n.movies.GetByID(ctx, ev.MovieID)
	if err != nil {
		return err
	}
	users, err := n.users.ListAll(ctx)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("New show added: %s", movie.Title)
	for _, u := range users {
		htmlBody := fmt.Sprintf(
			`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
  <h2>Hi %s,</h2>
  <p>We just added a new show to our library:</p>
  <h3 style="color: #F84565;">%s</h3>
  <p>Visit our website to book your seats.</p>
</div>`,
			u.Name, movie.Title,
		)
		if err := n.mail.Send(u.Email, subject, htmlBody); err != nil {
			n.log.Warn("show announcement mail failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	n.log.Info("show announcement sent",
		zap.String("movie_id", movie.ID),
		zap.Int("recipients", len(users)),
		zap.Time("at", time.Now().UTC()))
	return nil
}
