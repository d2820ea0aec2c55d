package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// UserSyncStore is the slice of the user repository the identity sync
// needs.
type UserSyncStore interface {
	Upsert(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

// WebhookHandler receives provider callbacks: checkout events from the
// payment provider, user lifecycle events from the identity provider.
// Both verify an HMAC signature over the raw body before touching any
// state.
type WebhookHandler struct {
	bookings *service.BookingService
	users    UserSyncStore

	checkoutSecret string
	identitySecret string
	log            *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(bookings *service.BookingService, users UserSyncStore, checkoutSecret, identitySecret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		bookings:       bookings,
		users:          users,
		checkoutSecret: checkoutSecret,
		identitySecret: identitySecret,
		log:            log,
	}
}

// Payment applies a checkout-provider event. A bad signature answers
// 400; processing failures answer 500 so the provider redelivers.
func (h *WebhookHandler) Payment(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	ev, err := payment.ConstructEvent(body, c.Request().Header.Get(payment.SignatureHeader), h.checkoutSecret)
	if err != nil {
		h.log.Warn("payment webhook rejected", zap.Error(err))
		return fail(c, http.StatusBadRequest, "invalid signature")
	}
	if err := h.bookings.HandleWebhookEvent(c.Request().Context(), ev); err != nil {
		h.log.Error("payment webhook processing failed", zap.String("event_id", ev.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "processing failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "received": true})
}

// identityEvent is the identity provider's user lifecycle payload.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// Identity mirrors user create/update/delete events into the local
// users table. Unknown event types are acknowledged and ignored.
func (h *WebhookHandler) Identity(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	if err := payment.VerifySignature(body, c.Request().Header.Get(payment.SignatureHeader), h.identitySecret); err != nil {
		h.log.Warn("identity webhook rejected", zap.Error(err))
		return fail(c, http.StatusBadRequest, "invalid signature")
	}
	var ev identityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}

	ctx := c.Request().Context()
	switch ev.Type {
	case "user.created", "user.updated":
		email := ""
		if len(ev.Data.EmailAddresses) > 0 {
			email = ev.Data.EmailAddresses[0].EmailAddress
		}
		u := &model.User{
			ID:    ev.Data.ID,
			Name:  strings.TrimSpace(ev.Data.FirstName + " " + ev.Data.LastName),
			Email: email,
			Image: ev.Data.ImageURL,
			Role:  model.RoleUser,
		}
		if err := h.users.Upsert(ctx, u); err != nil {
			h.log.Error("user sync failed", zap.String("user_id", u.ID), zap.Error(err))
			return fail(c, http.StatusInternalServerError, "processing failed")
		}
	case "user.deleted":
		if err := h.users.Delete(ctx, ev.Data.ID); err != nil {
			h.log.Error("user delete failed", zap.String("user_id", ev.Data.ID), zap.Error(err))
			return fail(c, http.StatusInternalServerError, "processing failed")
		}
	default:
		h.log.Debug("unhandled identity event", zap.String("type", ev.Type))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "received": true})
}
