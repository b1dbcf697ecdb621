package integrationtests

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roombook/internal/bookings/events"
	"roombook/internal/bookings/handler"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/service"
	"roombook/internal/bookings/validator"
	"roombook/internal/identity"
	"roombook/internal/venues"
	"roombook/pkg/app"
	"roombook/pkg/client"
	"roombook/pkg/config"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ServiceName = "bookings-integration-tests"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2025, 1, 10, 10, 15, 0, 0, time.UTC)

type suite struct {
	client  *client.BookingClient
	dataDir string
}

// setup runs the full HTTP stack in process over a file store.
func setup(t *testing.T) *suite {
	t.Helper()

	cfg := config.FromEnv(ServiceName)
	cfg.Log = logger.Discard()
	cfg.DataDir = t.TempDir()
	cfg.BookingWindowDays = 5

	grid, err := cfg.Grid()
	require.NoError(t, err)

	repo, err := repository.NewFileBookingRepository(cfg.DataDir, cfg.Log)
	require.NoError(t, err)

	roster := identity.NewRoster(
		model.Identity{ID: "S1", Name: "Alice"},
		model.Identity{ID: "S2", Name: "Jane"},
		model.Identity{ID: "S3", Name: "Bob"},
	)

	svc := service.NewBookingService(
		repo,
		validator.NewBookingValidator(grid, cfg.MaxBookingMin, cfg.Log),
		roster,
		venues.Default(),
		events.NewNoopPublisher(cfg.Log),
		fixedClock{t: now},
		cfg,
	)

	checks := map[string]handler.ReadinessCheck{
		"store": func(ctx context.Context) error {
			_, err := repo.List(ctx)
			return err
		},
	}
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(checks, cfg.Log),
		handler.NewBookingHandler(svc, roster, cfg.Log),
	)

	server := httptest.NewServer(serverApp.Handler())
	t.Cleanup(server.Close)

	c := client.NewBookingClient(server.URL)
	require.NoError(t, c.HTTP().WaitForHealthy(context.Background(), 5*time.Second))
	return &suite{client: c, dataDir: cfg.DataDir}
}

func aliceBooking() client.BookingRequest {
	return client.BookingRequest{
		Venue:   "Library",
		Room:    "Room A",
		Date:    "2025-01-11",
		Start:   "9:00 AM",
		End:     "10:30 AM",
		Pax:     2,
		User:    "alice",
		Members: []client.Member{{ID: "S2", Name: " jane "}},
	}
}

func requireAPIError(t *testing.T, err error, status int) *client.APIError {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	require.Equal(t, status, apiErr.Status, apiErr.Message)
	return apiErr
}

func TestBookingLifecycle(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	dates, err := s.client.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-10", "2025-01-11", "2025-01-12", "2025-01-13", "2025-01-14"}, dates)

	booking, err := s.client.Create(ctx, aliceBooking())
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "S1", booking.OwnerID)
	assert.Equal(t, "ALICE", booking.OwnerName)
	assert.Equal(t, []client.Member{{ID: "S2", Name: "JANE"}}, booking.Members)

	_, err = s.client.Create(ctx, aliceBooking())
	apiErr := requireAPIError(t, err, http.StatusUnprocessableEntity)
	assert.Equal(t, "BOOKING_REJECTED", apiErr.Code)
	assert.Equal(t, "owner already booked this slot", apiErr.Message)

	bob := aliceBooking()
	bob.User = "bob"
	bob.Start, bob.End = "10:00 AM", "11:00 AM"
	_, err = s.client.Create(ctx, bob)
	apiErr = requireAPIError(t, err, http.StatusUnprocessableEntity)
	assert.Equal(t, "room already booked for this slot", apiErr.Message)

	upcoming, err := s.client.Upcoming(ctx, "Jane")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, booking.ID, upcoming[0].ID)

	_, err = s.client.Cancel(ctx, "jane", booking.ID)
	requireAPIError(t, err, http.StatusForbidden)

	cancelled, err := s.client.Cancel(ctx, "alice", booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, cancelled.ID)

	upcoming, err = s.client.Upcoming(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	history, err := s.client.Cancelled(ctx, "S2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Room A", history[0].Room)

	_, err = s.client.Cancel(ctx, "alice", booking.ID)
	requireAPIError(t, err, http.StatusNotFound)

	raw, err := os.ReadFile(filepath.Join(s.dataDir, repository.CancelledFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Library,Room A,2025-01-11,9:00 AM,10:30 AM,2,S1,ALICE,S2|JANE")
}

func TestBookingRejections(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		mutate     func(r *client.BookingRequest)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "time already passed today",
			mutate:     func(r *client.BookingRequest) { r.Date = "2025-01-10" },
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "time already passed today",
		},
		{
			name:       "date in the past",
			mutate:     func(r *client.BookingRequest) { r.Date = "2025-01-09" },
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "date in the past",
		},
		{
			name:       "too long",
			mutate:     func(r *client.BookingRequest) { r.End = "12:30 PM" },
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "exceeds maximum booking length",
		},
		{
			name:       "unknown member",
			mutate:     func(r *client.BookingRequest) { r.Members = []client.Member{{ID: "S9", Name: "ghost"}} },
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "invalid identity",
		},
		{
			name:       "outside the booking window",
			mutate:     func(r *client.BookingRequest) { r.Date = "2025-01-20" },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown venue",
			mutate:     func(r *client.BookingRequest) { r.Venue = "Gym" },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := aliceBooking()
			tt.mutate(&req)
			_, err := s.client.Create(ctx, req)
			apiErr := requireAPIError(t, err, tt.wantStatus)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
		})
	}

	upcoming, err := s.client.Upcoming(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestAvailability(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.client.Create(ctx, aliceBooking())
	require.NoError(t, err)

	tomorrow, err := s.client.Availability(ctx, "Library", "2025-01-11")
	require.NoError(t, err)
	require.NotEmpty(t, tomorrow.Rooms)

	statuses := map[string]map[string]string{}
	for _, room := range tomorrow.Rooms {
		statuses[room.Room] = map[string]string{}
		for _, slot := range room.Slots {
			statuses[room.Room][slot.Start] = slot.Status
		}
	}
	assert.Equal(t, "booked", statuses["Room A"]["9:00 AM"])
	assert.Equal(t, "booked", statuses["Room A"]["10:00 AM"])
	assert.Equal(t, "available", statuses["Room A"]["10:30 AM"])
	assert.Equal(t, "available", statuses["Room B"]["9:00 AM"])

	today, err := s.client.Availability(ctx, "Library", "2025-01-10")
	require.NoError(t, err)
	first := today.Rooms[0].Slots
	assert.Equal(t, "past", first[0].Status)
	assert.Equal(t, "available", first[len(first)-1].Status)

	_, err = s.client.Availability(ctx, "Nowhere", "2025-01-10")
	requireAPIError(t, err, http.StatusNotFound)
}

func TestRequestGuards(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	resp, err := s.client.HTTP().GET(ctx, "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.client.HTTP().POST(ctx, "/api/v1/bookings", strings.Repeat("x", 128*1024))
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
