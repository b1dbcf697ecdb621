package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/validator"
	"roombook/internal/identity"
	"roombook/internal/venues"
	"roombook/pkg/calendar"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepository struct {
	mu        sync.Mutex
	active    []*model.Reservation
	cancelled []*model.Reservation
	listErr   error
}

func (m *memRepository) Append(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = append(m.active, r)
	return nil
}

func (m *memRepository) List(_ context.Context) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]*model.Reservation(nil), m.active...), nil
}

func (m *memRepository) ListCancelled(_ context.Context) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Reservation(nil), m.cancelled...), nil
}

func (m *memRepository) Relocate(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.active {
		if a.Key() == r.Key() {
			m.active = append(m.active[:i], m.active[i+1:]...)
			m.cancelled = append(m.cancelled, a)
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   []*model.Reservation
	cancelled []*model.Reservation
	err       error
}

func (p *recordingPublisher) ReservationCreated(_ context.Context, r *model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, r)
	return p.err
}

func (p *recordingPublisher) ReservationCancelled(_ context.Context, r *model.Reservation, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, r)
	return p.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var (
	now      = time.Date(2025, 1, 10, 10, 15, 0, 0, time.UTC)
	today    = calendar.DateOf(now)
	tomorrow = today.AddDays(1)
)

type fixture struct {
	svc       BookingService
	repo      *memRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	grid, err := calendar.NewGrid(calendar.NewClock(8, 0), calendar.NewClock(21, 0), 30)
	require.NoError(t, err)

	repo := &memRepository{}
	pub := &recordingPublisher{}
	roster := identity.NewRoster(
		model.Identity{ID: "S1", Name: "Alice"},
		model.Identity{ID: "S2", Name: "Jane"},
		model.Identity{ID: "S3", Name: "Bob"},
		model.Identity{ID: "S4", Name: "Jane Doe"},
	)
	cfg := &config.Config{Log: log, BookingWindowDays: 5}

	svc := NewBookingService(
		repo,
		validator.NewBookingValidator(grid, 180, log),
		roster,
		venues.Default(),
		pub,
		fixedClock{t: now},
		cfg,
	)
	return &fixture{svc: svc, repo: repo, publisher: pub}
}

func reservation(date calendar.Date, room string, start, end int, owner string, members ...model.Participant) *model.Reservation {
	return &model.Reservation{
		Venue:        "Library",
		Room:         room,
		Date:         date,
		Start:        calendar.Clock(start),
		End:          calendar.Clock(end),
		PartySize:    1 + len(members),
		OwnerID:      owner,
		OwnerName:    map[string]string{"S1": "ALICE", "S2": "JANE", "S3": "BOB"}[owner],
		Participants: members,
	}
}

func hm(h, m int) int { return int(calendar.NewClock(h, m)) }

func candidate() *model.Candidate {
	return &model.Candidate{
		Venue:        " Library ",
		Room:         "Room  A",
		Date:         tomorrow,
		Start:        calendar.NewClock(9, 0),
		End:          calendar.NewClock(10, 0),
		PartySize:    2,
		OwnerID:      "S1",
		OwnerName:    "alice",
		Participants: []model.Participant{{ID: "S2", Name: " jane "}},
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestBook_Admitted(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Book(context.Background(), candidate())
	require.NoError(t, err)

	assert.Equal(t, "Library", got.Venue)
	assert.Equal(t, "Room A", got.Room)
	assert.Equal(t, "ALICE", got.OwnerName)
	assert.Equal(t, []model.Participant{{ID: "S2", Name: "JANE"}}, got.Participants)
	assert.Len(t, f.repo.active, 1)
	assert.Len(t, f.publisher.created, 1)
}

func TestBook_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		existing []*model.Reservation
		mutate   func(c *model.Candidate)
		wantCode string
		wantMsg  string
		wantRow  any
	}{
		{
			name:     "room conflict",
			existing: []*model.Reservation{reservation(tomorrow, "Room A", hm(9, 30), hm(10, 30), "S3")},
			wantCode: apperrors.CodeRejected,
			wantMsg:  "room already booked for this slot",
		},
		{
			name:     "owner conflict in another room",
			existing: []*model.Reservation{reservation(tomorrow, "Room B", hm(9, 0), hm(9, 30), "S1")},
			wantCode: apperrors.CodeRejected,
			wantMsg:  "owner already booked this slot",
		},
		{
			name: "unknown participant",
			mutate: func(c *model.Candidate) {
				c.Participants = []model.Participant{{ID: "S9", Name: "Nobody"}}
			},
			wantCode: apperrors.CodeRejected,
			wantMsg:  "invalid identity",
			wantRow:  1,
		},
		{
			name:     "date in the past",
			mutate:   func(c *model.Candidate) { c.Date = today.AddDays(-1) },
			wantCode: apperrors.CodeRejected,
			wantMsg:  "date in the past",
		},
		{
			name: "start already passed today",
			mutate: func(c *model.Candidate) {
				c.Date = today
				c.Start = calendar.NewClock(10, 0)
				c.End = calendar.NewClock(11, 0)
			},
			wantCode: apperrors.CodeRejected,
			wantMsg:  "time already passed today",
		},
		{
			name:     "unknown venue",
			mutate:   func(c *model.Candidate) { c.Venue = "Moon Base" },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "unknown room",
			mutate:   func(c *model.Candidate) { c.Room = "Room Z" },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "party larger than the room",
			mutate:   func(c *model.Candidate) { c.PartySize = 9 },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "beyond the booking window",
			mutate:   func(c *model.Candidate) { c.Date = today.AddDays(5) },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "venue not selected",
			mutate:   func(c *model.Candidate) { c.Venue = "  " },
			wantCode: apperrors.CodeRejected,
			wantMsg:  "venue must be selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.active = tt.existing
			c := candidate()
			if tt.mutate != nil {
				tt.mutate(c)
			}

			_, err := f.svc.Book(context.Background(), c)
			assert.Equal(t, tt.wantCode, appCode(t, err))

			appErr := apperrors.AsAppError(err)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
			if tt.wantRow != nil {
				assert.Equal(t, tt.wantRow, appErr.Details["row"])
			}
			assert.Len(t, f.repo.active, len(tt.existing))
			assert.Empty(t, f.publisher.created)
		})
	}
}

func TestBook_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.listErr = errors.New("disk gone")

	_, err := f.svc.Book(context.Background(), candidate())
	assert.Equal(t, apperrors.CodeInternal, appCode(t, err))
}

func TestBook_PublishFailureKeepsBooking(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.Book(context.Background(), candidate())
	require.NoError(t, err)
	assert.Len(t, f.repo.active, 1)
}

func TestBook_ConcurrentRequestsForSameSlot(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), candidate())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Len(t, f.repo.active, 1)
}

func TestCancel(t *testing.T) {
	jane := model.Participant{ID: "S2", Name: "JANE"}
	upcoming := reservation(tomorrow, "Room A", hm(9, 0), hm(10, 0), "S1", jane)
	ended := reservation(today, "Room B", hm(8, 0), hm(9, 0), "S1")
	missingKey := reservation(tomorrow, "Room C", hm(9, 0), hm(10, 0), "S1").Key()

	tests := []struct {
		name     string
		user     string
		key      string
		wantCode string
	}{
		{name: "participant cannot cancel", user: "S2", key: upcoming.Key(), wantCode: apperrors.CodeForbidden},
		{name: "stranger cannot cancel", user: "bob", key: upcoming.Key(), wantCode: apperrors.CodeForbidden},
		{name: "ended booking", user: "S1", key: ended.Key(), wantCode: apperrors.CodeConflict},
		{name: "unknown key", user: "S1", key: missingKey, wantCode: apperrors.CodeNotFound},
		{name: "malformed key", user: "S1", key: "not-a-key", wantCode: apperrors.CodeInvalidInput},
		{name: "no user", user: " ", key: upcoming.Key(), wantCode: apperrors.CodeInvalidInput},
		{name: "owner by id", user: "S1", key: upcoming.Key()},
		{name: "owner by name", user: "alice", key: upcoming.Key()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.active = []*model.Reservation{upcoming, ended}

			got, err := f.svc.Cancel(context.Background(), tt.user, tt.key)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, appCode(t, err))
				assert.Len(t, f.repo.active, 2)
				assert.Empty(t, f.publisher.cancelled)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, upcoming, got)
			assert.Equal(t, []*model.Reservation{ended}, f.repo.active)
			assert.Equal(t, []*model.Reservation{upcoming}, f.repo.cancelled)
			assert.Len(t, f.publisher.cancelled, 1)
		})
	}
}

func TestUpcomingPastCancelled(t *testing.T) {
	f := newFixture(t)
	jane := model.Participant{ID: "S2", Name: "JANE"}

	finished := reservation(today, "Room A", hm(8, 0), hm(9, 0), "S1", jane)
	running := reservation(today, "Room B", hm(10, 0), hm(11, 0), "S1")
	later := reservation(tomorrow, "Room A", hm(9, 0), hm(10, 0), "S3", jane)
	f.repo.active = []*model.Reservation{finished, running, later}
	f.repo.cancelled = []*model.Reservation{reservation(tomorrow, "Room C", hm(9, 0), hm(10, 0), "S3")}

	ctx := context.Background()

	up, err := f.svc.Upcoming(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, []*model.Reservation{running}, up)

	up, err = f.svc.Upcoming(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, []*model.Reservation{later}, up)

	past, err := f.svc.Past(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, []*model.Reservation{finished}, past)

	cancelled, err := f.svc.Cancelled(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)

	cancelled, err = f.svc.Cancelled(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, cancelled)

	_, err = f.svc.Upcoming(ctx, "")
	assert.Equal(t, apperrors.CodeInvalidInput, appCode(t, err))
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	f.repo.active = []*model.Reservation{
		reservation(today, "Room A", hm(9, 0), hm(10, 0), "S1"),
		reservation(tomorrow, "Room B", hm(8, 0), hm(8, 30), "S1"),
	}

	got, err := f.svc.Availability(context.Background(), "Library", today)
	require.NoError(t, err)
	assert.Equal(t, "Library", got.Venue)
	require.Len(t, got.Rooms, 3)

	roomA := got.Rooms[0]
	assert.Equal(t, "Room A", roomA.Room)
	require.Len(t, roomA.Slots, 26)

	status := func(slots []model.Slot, start calendar.Clock) model.SlotStatus {
		for _, s := range slots {
			if s.Start == start {
				return s.Status
			}
		}
		t.Fatalf("no slot starting at %s", start)
		return ""
	}
	assert.Equal(t, model.SlotPast, status(roomA.Slots, calendar.NewClock(8, 0)))
	assert.Equal(t, model.SlotBooked, status(roomA.Slots, calendar.NewClock(9, 0)))
	assert.Equal(t, model.SlotBooked, status(roomA.Slots, calendar.NewClock(9, 30)))
	assert.Equal(t, model.SlotAvailable, status(roomA.Slots, calendar.NewClock(10, 0)))
	assert.Equal(t, model.SlotPast, status(got.Rooms[1].Slots, calendar.NewClock(8, 0)))

	got, err = f.svc.Availability(context.Background(), "Library", tomorrow)
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, status(got.Rooms[1].Slots, calendar.NewClock(8, 0)))
	assert.Equal(t, model.SlotAvailable, status(got.Rooms[0].Slots, calendar.NewClock(8, 0)))

	_, err = f.svc.Availability(context.Background(), "Moon Base", today)
	assert.Equal(t, apperrors.CodeNotFound, appCode(t, err))
}

func TestDates(t *testing.T) {
	f := newFixture(t)

	dates := f.svc.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, today, dates[0])
	assert.Equal(t, today.AddDays(4), dates[4])
	assert.NotEmpty(t, f.svc.Venues())
}

func TestBook_LeavesCandidateUntouched(t *testing.T) {
	f := newFixture(t)
	c := candidate()

	_, err := f.svc.Book(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, " Library ", c.Venue)
	assert.Equal(t, "Room  A", c.Room)
	assert.Equal(t, []model.Participant{{ID: "S2", Name: " jane "}}, c.Participants)
}

func TestBook_ParticipantNamesKeepInnerSpacing(t *testing.T) {
	tests := []struct {
		name     string
		typed    string
		wantCode string
	}{
		{name: "padded name matches", typed: "  jane doe "},
		{name: "doubled inner space does not match", typed: "jane  doe", wantCode: apperrors.CodeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := candidate()
			c.Participants = []model.Participant{{ID: "S4", Name: tt.typed}}

			got, err := f.svc.Book(context.Background(), c)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, appCode(t, err))
				assert.Equal(t, "invalid identity", apperrors.AsAppError(err).Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []model.Participant{{ID: "S4", Name: "JANE DOE"}}, got.Participants)
		})
	}
}

func TestUnknownOwnerMarkerIsNotAUser(t *testing.T) {
	f := newFixture(t)
	guest := reservation(tomorrow, "Room C", hm(9, 0), hm(10, 0), identity.UnknownOwnerID)
	guest.OwnerName = "GUEST"
	f.repo.active = []*model.Reservation{guest}
	f.repo.cancelled = []*model.Reservation{guest}
	ctx := context.Background()

	for _, user := range []string{identity.UnknownOwnerID, " n/a "} {
		_, err := f.svc.Upcoming(ctx, user)
		assert.Equal(t, apperrors.CodeInvalidInput, appCode(t, err))

		_, err = f.svc.Past(ctx, user)
		assert.Equal(t, apperrors.CodeInvalidInput, appCode(t, err))

		_, err = f.svc.Cancelled(ctx, user)
		assert.Equal(t, apperrors.CodeInvalidInput, appCode(t, err))

		_, err = f.svc.Cancel(ctx, user, guest.Key())
		assert.Equal(t, apperrors.CodeInvalidInput, appCode(t, err))
	}
	assert.Len(t, f.repo.active, 1)

	up, err := f.svc.Upcoming(ctx, "guest")
	require.NoError(t, err)
	assert.Len(t, up, 1)
}
