package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// memStore is a mutex-protected in-memory BookingStore, ShowGetter and
// MovieGetter. Reserve and Release mirror the SQL repo's atomicity: a
// reservation either claims every seat or none, and Release only acts
// on unpaid bookings.
type memStore struct {
	mu       sync.Mutex
	shows    map[string]*model.Show
	movies   map[string]*model.Movie
	bookings map[string]*model.Booking
	occupied map[string]map[string]string // show id -> seat -> booking id
}

func newMemStore() *memStore {
	return &memStore{
		shows:    make(map[string]*model.Show),
		movies:   make(map[string]*model.Movie),
		bookings: make(map[string]*model.Booking),
		occupied: make(map[string]map[string]string),
	}
}

func (m *memStore) addShow(id, movieID string, price uint32) {
	m.shows[id] = &model.Show{ID: id, MovieID: movieID, StartsAt: time.Now().Add(time.Hour), PriceCents: price}
	m.occupied[id] = make(map[string]string)
}

func (m *memStore) Reserve(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shows[b.ShowID]; !ok {
		return repository.ErrShowNotFound
	}
	seats := m.occupied[b.ShowID]
	var taken []string
	for _, s := range b.Seats {
		if _, held := seats[s]; held {
			taken = append(taken, s)
		}
	}
	if len(taken) > 0 {
		return &repository.SeatUnavailableError{Seats: taken}
	}
	for _, s := range b.Seats {
		seats[s] = b.ID
	}
	cp := *b
	cp.CreatedAt = time.Now()
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) Release(_ context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.IsPaid {
		return false, nil
	}
	for seat, holder := range m.occupied[b.ShowID] {
		if holder == bookingID {
			delete(m.occupied[b.ShowID], seat)
		}
	}
	delete(m.bookings, bookingID)
	return true, nil
}

func (m *memStore) MarkPaid(_ context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.IsPaid {
		return false, nil
	}
	b.IsPaid = true
	b.PaymentLink = ""
	b.SessionID = ""
	return true, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) SetPaymentSession(_ context.Context, bookingID, link, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[bookingID]; ok && !b.IsPaid {
		b.PaymentLink = link
		b.SessionID = sessionID
	}
	return nil
}

func (m *memStore) GetShowByID(_ context.Context, id string) (*model.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) occupiedLabels(showID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for seat := range m.occupied[showID] {
		out = append(out, seat)
	}
	return out
}

// showGetter adapts memStore to the ShowGetter interface.
type showGetter struct{ m *memStore }

func (g showGetter) GetByID(ctx context.Context, id string) (*model.Show, error) {
	return g.m.GetShowByID(ctx, id)
}

// movieGetter adapts memStore to the MovieGetter interface.
type movieGetter struct{ m *memStore }

func (g movieGetter) GetByID(_ context.Context, id string) (*model.Movie, error) {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	mv, ok := g.m.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return mv, nil
}

// fakeCheckout records created sessions and serves them back.
type fakeCheckout struct {
	mu        sync.Mutex
	failNext  bool
	created   []payment.CreateSessionRequest
	sessions  map[string]*payment.Session
	byIntent  map[string][]payment.Session
	nextState string
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{
		sessions:  make(map[string]*payment.Session),
		byIntent:  make(map[string][]payment.Session),
		nextState: "unpaid",
	}
}

func (f *fakeCheckout) CreateSession(_ context.Context, req payment.CreateSessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("provider unavailable")
	}
	f.created = append(f.created, req)
	s := &payment.Session{
		ID:            fmt.Sprintf("cs_%d", len(f.created)),
		URL:           "https://pay.example/session",
		PaymentStatus: f.nextState,
		Metadata:      req.Metadata,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeCheckout) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeCheckout) ListSessionsByIntent(_ context.Context, intentID string) ([]payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byIntent[intentID], nil
}

func (f *fakeCheckout) markPaid(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.PaymentStatus = payment.SessionStatusPaid
	}
}

// fakePublisher counts published events.
type fakePublisher struct {
	mu        sync.Mutex
	created   []queue.BookingCreatedEvent
	confirmed []queue.BookingConfirmedEvent
}

func (p *fakePublisher) PublishBookingCreated(_ context.Context, ev queue.BookingCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, ev)
	return nil
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *fakePublisher) confirmedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.confirmed)
}

func newTestService(store *memStore) (*BookingService, *fakeCheckout, *fakePublisher) {
	checkout := newFakeCheckout()
	pub := &fakePublisher{}
	svc := NewBookingService(
		store, showGetter{store}, movieGetter{store}, checkout, pub,
		30*time.Minute, "http://localhost:5173", zap.NewNop(),
	)
	return svc, checkout, pub
}

func TestCreateComputesAmountFromShowPrice(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1250)
	svc, checkout, pub := newTestService(store)

	b, err := svc.Create(context.Background(), "user-1", "show-1", []string{"A1", "a2 ", "B3"})
	require.NoError(t, err)
	assert.Equal(t, uint32(3*1250), b.AmountCents)
	assert.Equal(t, []string{"A1", "A2", "B3"}, b.Seats)
	assert.False(t, b.IsPaid)
	assert.NotEmpty(t, b.PaymentLink)

	require.Len(t, checkout.created, 1)
	assert.Equal(t, uint32(3750), checkout.created[0].AmountCents)
	assert.Equal(t, b.ID, checkout.created[0].Metadata["booking_id"])
	assert.Len(t, pub.created, 1)
}

func TestCreateRejectsBadSeatLists(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)

	cases := map[string][]string{
		"empty":     {},
		"duplicate": {"A1", "A1"},
		"blank":     {"A1", "  "},
	}
	for name, seats := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u", "show-1", seats)
			assert.ErrorIs(t, err, ErrInvalidSeats)
		})
	}
}

func TestCreateUnknownShow(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())
	_, err := svc.Create(context.Background(), "u", "nope", []string{"A1"})
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestCreateSeatConflictReportsTakenSeats(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "first", "show-1", []string{"A1", "A2"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "second", "show-1", []string{"A2", "A3"})
	var taken *repository.SeatUnavailableError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []string{"A2"}, taken.Seats)

	// The failed attempt must not have claimed A3.
	assert.ElementsMatch(t, []string{"A1", "A2"}, store.occupiedLabels("show-1"))
}

func TestConcurrentOverlappingReservations(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(ctx, fmt.Sprintf("user-%d", i), "show-1", []string{"C4", "C5"})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else {
				var taken *repository.SeatUnavailableError
				assert.ErrorAs(t, err, &taken)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
	assert.ElementsMatch(t, []string{"C4", "C5"}, store.occupiedLabels("show-1"))
}

func TestConcurrentDisjointReservationsAllSucceed(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seat := fmt.Sprintf("D%d", i)
			_, errs[i] = svc.Create(ctx, fmt.Sprintf("user-%d", i), "show-1", []string{seat})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
	assert.Len(t, store.occupiedLabels("show-1"), workers)
}

func TestCreateKeepsBookingWhenCheckoutFails(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, checkout, _ := newTestService(store)
	checkout.failNext = true

	b, err := svc.Create(context.Background(), "u", "show-1", []string{"A1"})
	require.NoError(t, err)
	assert.Empty(t, b.PaymentLink)
	assert.ElementsMatch(t, []string{"A1"}, store.occupiedLabels("show-1"))

	// Refresh recovers by opening a fresh session.
	refreshed, err := svc.Refresh(context.Background(), "u", b.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.PaymentLink)
}

func TestRefreshChecksOwnerAndPaidState(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "owner", "show-1", []string{"A1"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "stranger", b.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = svc.Refresh(ctx, "owner", "missing")
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	_, err = store.MarkPaid(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, "owner", b.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestConfirmBySessionIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, checkout, pub := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u", "show-1", []string{"A1"})
	require.NoError(t, err)

	// Not paid yet: the fallback must refuse.
	err = svc.ConfirmBySession(ctx, b.SessionID)
	assert.ErrorIs(t, err, ErrSessionUnpaid)

	checkout.markPaid(b.SessionID)
	require.NoError(t, svc.ConfirmBySession(ctx, b.SessionID))
	require.NoError(t, svc.ConfirmBySession(ctx, b.SessionID)) // replay

	got, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Empty(t, got.PaymentLink)
	assert.Equal(t, 1, pub.confirmedCount())
}

func TestWebhookSessionCompleted(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, pub := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u", "show-1", []string{"A1"})
	require.NoError(t, err)

	obj, _ := json.Marshal(map[string]interface{}{
		"id":       b.SessionID,
		"metadata": map[string]string{"booking_id": b.ID},
	})
	ev := &payment.Event{ID: "evt_1", Type: payment.EventSessionCompleted}
	ev.Data.Object = obj
	require.NoError(t, svc.HandleWebhookEvent(ctx, ev))

	got, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, 1, pub.confirmedCount())
}

func TestWebhookIntentFallback(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, checkout, _ := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u", "show-1", []string{"A1"})
	require.NoError(t, err)
	checkout.byIntent["pi_1"] = []payment.Session{{
		ID:       b.SessionID,
		Metadata: map[string]string{"booking_id": b.ID},
	}}

	obj, _ := json.Marshal(map[string]string{"id": "pi_1"})
	ev := &payment.Event{ID: "evt_2", Type: payment.EventIntentSucceeded}
	ev.Data.Object = obj
	require.NoError(t, svc.HandleWebhookEvent(ctx, ev))

	got, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
}

func TestWebhookUnknownTypeIgnored(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())
	ev := &payment.Event{ID: "evt_3", Type: "charge.disputed"}
	assert.NoError(t, svc.HandleWebhookEvent(context.Background(), ev))
}

func expiryMessage(t *testing.T, bookingID string) []byte {
	t.Helper()
	body, err := json.Marshal(queue.BookingCreatedEvent{
		BookingID: bookingID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return body
}

func TestReaperReleasesUnpaidBooking(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u", "show-1", []string{"A1", "A2"})
	require.NoError(t, err)

	require.NoError(t, svc.HandleExpiredMessage(ctx, expiryMessage(t, b.ID)))
	assert.Empty(t, store.occupiedLabels("show-1"))
	_, err = store.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	// Redelivery of the same message is a no-op.
	assert.NoError(t, svc.HandleExpiredMessage(ctx, expiryMessage(t, b.ID)))
}

func TestReaperSparesPaidBooking(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, checkout, _ := newTestService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, "u", "show-1", []string{"A1"})
	require.NoError(t, err)
	checkout.markPaid(b.SessionID)
	require.NoError(t, svc.ConfirmBySession(ctx, b.SessionID))

	require.NoError(t, svc.HandleExpiredMessage(ctx, expiryMessage(t, b.ID)))
	assert.ElementsMatch(t, []string{"A1"}, store.occupiedLabels("show-1"))
	got, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
}

func TestSeatsFreedByReaperCanBeRebooked(t *testing.T) {
	store := newMemStore()
	store.addShow("show-1", "m1", 1000)
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", "show-1", []string{"A1"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleExpiredMessage(ctx, expiryMessage(t, first.ID)))

	second, err := svc.Create(ctx, "u2", "show-1", []string{"A1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}
