package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/events"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	"roombook/internal/identity"
	"roombook/internal/venues"
	"roombook/pkg/calendar"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"

	"github.com/google/uuid"
)

type BookingService interface {
	Book(ctx context.Context, candidate *model.Candidate) (*model.Reservation, error)
	Cancel(ctx context.Context, userKey, key string) (*model.Reservation, error)
	Upcoming(ctx context.Context, userKey string) ([]*model.Reservation, error)
	Past(ctx context.Context, userKey string) ([]*model.Reservation, error)
	Cancelled(ctx context.Context, userKey string) ([]*model.Reservation, error)
	Availability(ctx context.Context, venue string, date calendar.Date) (*model.VenueAvailability, error)
	Venues() []venues.Venue
	Dates() []calendar.Date
}

// Clock supplies the current wall time in the service's location.
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	roster    *identity.Roster
	catalogue *venues.Catalogue
	publisher events.Publisher
	clock     Clock
	cfg       *config.Config

	// mu makes list+validate+append and list+relocate atomic within this
	// process.
	mu sync.Mutex
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	roster *identity.Roster,
	catalogue *venues.Catalogue,
	publisher events.Publisher,
	clock Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		roster:    roster,
		catalogue: catalogue,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
	}
}

func (s *bookingService) Book(ctx context.Context, candidate *model.Candidate) (*model.Reservation, error) {
	if candidate == nil {
		return nil, apperrors.InvalidInput("Booking request cannot be empty")
	}
	candidate = sanitize(candidate)

	if err := s.checkCatalogue(candidate); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if last := calendar.DateOf(now).AddDays(s.cfg.BookingWindowDays - 1); candidate.Date.After(last) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Date must be on or before %s", last))
	}

	s.mu.Lock()
	existing, err := s.repo.List(ctx)
	if err != nil {
		s.mu.Unlock()
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	reservation, err := s.validator.Validate(candidate, existing, s.roster, now)
	if err != nil {
		s.mu.Unlock()
		var rejected *bookingserrors.RejectedBooking
		if errors.As(err, &rejected) {
			s.cfg.Log.Warn("Booking rejected",
				"reason", rejected.Reason.Error(),
				"row", rejected.Row,
				"owner_id", candidate.OwnerID,
				"venue", candidate.Venue,
				"room", candidate.Room,
			)
			return nil, apperrors.Rejected(rejected.Reason, rejected.Row)
		}
		return nil, apperrors.Internal("Failed to validate booking", err)
	}

	if err := s.repo.Append(ctx, reservation); err != nil {
		s.mu.Unlock()
		s.cfg.Log.Error("Failed to append booking", "key", reservation.Key(), "error", err)
		return nil, apperrors.Internal("Failed to save booking", err)
	}
	s.mu.Unlock()

	if err := s.publisher.ReservationCreated(ctx, reservation); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "key", reservation.Key(), "error", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"key", reservation.Key(),
		"venue", reservation.Venue,
		"room", reservation.Room,
		"date", reservation.Date,
		"start", reservation.Start,
		"end", reservation.End,
		"owner_id", reservation.OwnerID,
	)
	return reservation, nil
}

func (s *bookingService) Cancel(ctx context.Context, userKey, key string) (*model.Reservation, error) {
	userKey, err := parseUserKey(userKey)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(key); err != nil {
		return nil, apperrors.InvalidInput(bookingserrors.ErrInvalidID.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.repo.List(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	var target *model.Reservation
	for _, r := range active {
		if r.Key() == key {
			target = r
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFoundWithID("Booking", key)
	}
	if !target.IsOwner(userKey) {
		s.cfg.Log.Warn("Cancel refused, caller is not the owner", "key", key, "user", userKey)
		return nil, apperrors.Forbidden("Only the booking owner can cancel it")
	}
	if !target.EndsAfter(s.clock.Now()) {
		return nil, apperrors.Conflict("Booking has already ended")
	}

	if err := s.repo.Relocate(ctx, target); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", key)
		}
		s.cfg.Log.Error("Failed to cancel booking", "key", key, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	if err := s.publisher.ReservationCancelled(ctx, target, userKey); err != nil {
		s.cfg.Log.Warn("Failed to publish cancel event", "key", key, "error", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "key", key, "user", userKey)
	return target, nil
}

func (s *bookingService) Upcoming(ctx context.Context, userKey string) ([]*model.Reservation, error) {
	now := s.clock.Now()
	return s.filterActive(ctx, userKey, func(r *model.Reservation) bool { return r.EndsAfter(now) })
}

func (s *bookingService) Past(ctx context.Context, userKey string) ([]*model.Reservation, error) {
	now := s.clock.Now()
	return s.filterActive(ctx, userKey, func(r *model.Reservation) bool { return !r.EndsAfter(now) })
}

func (s *bookingService) Cancelled(ctx context.Context, userKey string) ([]*model.Reservation, error) {
	userKey, err := parseUserKey(userKey)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.repo.ListCancelled(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list cancelled bookings", "error", err)
		return nil, apperrors.Internal("Failed to load cancelled bookings", err)
	}
	return involving(cancelled, userKey, nil), nil
}

func (s *bookingService) filterActive(ctx context.Context, userKey string, keep func(*model.Reservation) bool) ([]*model.Reservation, error) {
	userKey, err := parseUserKey(userKey)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.List(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}
	return involving(active, userKey, keep), nil
}

func involving(all []*model.Reservation, userKey string, keep func(*model.Reservation) bool) []*model.Reservation {
	out := make([]*model.Reservation, 0)
	for _, r := range all {
		if r.Involves(userKey) && (keep == nil || keep(r)) {
			out = append(out, r)
		}
	}
	return out
}

// Availability marks each grid interval of each room as booked when an active
// reservation of that room overlaps it, otherwise as past once its end has
// gone by, otherwise as available.
func (s *bookingService) Availability(ctx context.Context, venueName string, date calendar.Date) (*model.VenueAvailability, error) {
	venue, ok := s.catalogue.Venue(sanitizer.NormalizeName(venueName))
	if !ok {
		return nil, apperrors.NotFoundWithID("Venue", venueName)
	}
	if date.IsZero() {
		return nil, apperrors.InvalidInput("Date is required")
	}

	active, err := s.repo.List(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	now := s.clock.Now()
	today := calendar.DateOf(now)
	intervals := s.validator.Grid().Intervals()

	result := &model.VenueAvailability{
		Venue: venue.Name,
		Date:  date,
		Rooms: make([]model.RoomAvailability, 0, len(venue.Rooms)),
	}
	for _, room := range venue.Rooms {
		slots := make([]model.Slot, 0, len(intervals))
		for _, iv := range intervals {
			status := model.SlotAvailable
			if roomBooked(active, venue.Name, room.Name, date, iv[0], iv[1]) {
				status = model.SlotBooked
			} else if date.Before(today) || (date.Compare(today) == 0 && !iv[1].After(now)) {
				status = model.SlotPast
			}
			slots = append(slots, model.Slot{Start: iv[0], End: iv[1], Status: status})
		}
		result.Rooms = append(result.Rooms, model.RoomAvailability{Room: room.Name, Slots: slots})
	}
	return result, nil
}

func roomBooked(active []*model.Reservation, venue, room string, date calendar.Date, start, end calendar.Clock) bool {
	for _, r := range active {
		if r.Venue == venue && r.Room == room && r.Date.Compare(date) == 0 && r.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (s *bookingService) Venues() []venues.Venue {
	return s.catalogue.Venues
}

func (s *bookingService) Dates() []calendar.Date {
	return calendar.Dates(calendar.DateOf(s.clock.Now()), s.cfg.BookingWindowDays)
}

// sanitize returns a trimmed copy of in; the caller's candidate is left as is.
func sanitize(in *model.Candidate) *model.Candidate {
	c := *in
	c.Venue = sanitizer.NormalizeName(in.Venue)
	c.Room = sanitizer.NormalizeName(in.Room)
	c.OwnerID = sanitizer.NormalizePerson(in.OwnerID)
	c.OwnerName = sanitizer.NormalizePerson(in.OwnerName)
	c.Participants = make([]model.Participant, len(in.Participants))
	for i, p := range in.Participants {
		c.Participants[i] = model.Participant{
			ID:   sanitizer.NormalizePerson(p.ID),
			Name: sanitizer.NormalizePerson(p.Name),
		}
	}
	return &c
}

// parseUserKey trims the signed-in user key. The unknown-owner marker is refused:
// it would match every booking made by someone off the roster.
func parseUserKey(raw string) (string, error) {
	key := sanitizer.NormalizePerson(raw)
	if key == "" {
		return "", apperrors.InvalidInput("User cannot be empty")
	}
	if strings.EqualFold(key, identity.UnknownOwnerID) {
		return "", apperrors.InvalidInput(fmt.Sprintf("User %q is not a valid user", key))
	}
	return key, nil
}

func (s *bookingService) checkCatalogue(c *model.Candidate) error {
	err := s.catalogue.Check(c.Venue, c.Room, c.PartySize)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, venues.ErrUnknownVenue):
		return apperrors.InvalidInput(fmt.Sprintf("Unknown venue: %s", c.Venue))
	case errors.Is(err, venues.ErrUnknownRoom):
		return apperrors.InvalidInput(fmt.Sprintf("Unknown room %s in %s", c.Room, c.Venue))
	case errors.Is(err, venues.ErrPartySize):
		return apperrors.InvalidInput(err.Error())
	default:
		return apperrors.Internal("Failed to check venue catalogue", err)
	}
}
