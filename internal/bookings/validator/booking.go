package validator

import (
	"errors"
	"strings"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/calendar"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/go-playground/validator/v10"
)

const DefaultMaxDurationMin = 180

// Directory resolves a participant identifier to its canonical identity.
type Directory interface {
	Lookup(id string) (model.Identity, bool)
}

type BookingValidator struct {
	validate       *validator.Validate
	grid           *calendar.Grid
	maxDurationMin int
	logger         *logger.Logger
}

func NewBookingValidator(grid *calendar.Grid, maxDurationMin int, log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("selected", validateSelected); err != nil {
		log.Fatal("Failed to register 'selected' validator",
			"error", err,
		)
	}
	if maxDurationMin <= 0 {
		maxDurationMin = DefaultMaxDurationMin
	}

	log.Info("Booking validator initialized successfully",
		"slot_step_min", grid.Step(),
		"max_duration_min", maxDurationMin,
	)

	return &BookingValidator{
		validate:       v,
		grid:           grid,
		maxDurationMin: maxDurationMin,
		logger:         log,
	}
}

func (v *BookingValidator) Grid() *calendar.Grid {
	return v.grid
}

func validateSelected(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate decides whether candidate may be booked against the existing
// reservations at time now. The checks run in a fixed order and the first
// failure is returned as a *errors.RejectedBooking. On success the admitted
// reservation carries canonical owner and participant names.
func (v *BookingValidator) Validate(candidate *model.Candidate, existing []*model.Reservation, roster Directory, now time.Time) (*model.Reservation, error) {
	c := normalize(candidate)

	if err := v.checkRequired(c); err != nil {
		return nil, err
	}

	minutes, err := v.grid.Minutes(c.Start, c.End)
	if err != nil {
		return nil, bookingserrors.Reject(bookingserrors.ErrOffGrid)
	}
	if minutes <= 0 {
		return nil, bookingserrors.Reject(bookingserrors.ErrEndNotAfterStart)
	}
	if minutes > v.maxDurationMin {
		return nil, bookingserrors.Reject(bookingserrors.ErrExceedsMaxLength)
	}

	today := calendar.DateOf(now)
	if c.Date.Before(today) {
		return nil, bookingserrors.Reject(bookingserrors.ErrDateInPast)
	}
	if c.Date.Compare(today) == 0 && !c.Start.After(now) {
		return nil, bookingserrors.Reject(bookingserrors.ErrTimePassedToday)
	}

	if err := checkConflicts(c, existing); err != nil {
		return nil, err
	}

	participants, err := checkParticipants(c, roster)
	if err != nil {
		return nil, err
	}
	if len(participants) != c.PartySize-1 {
		return nil, bookingserrors.Reject(bookingserrors.ErrParticipantsCount)
	}

	ownerName := strings.ToUpper(c.OwnerName)
	if roster != nil {
		if owner, ok := roster.Lookup(c.OwnerID); ok {
			ownerName = owner.Name
		}
	}

	return &model.Reservation{
		Venue:        c.Venue,
		Room:         c.Room,
		Date:         c.Date,
		Start:        c.Start,
		End:          c.End,
		PartySize:    c.PartySize,
		OwnerID:      c.OwnerID,
		OwnerName:    ownerName,
		Participants: participants,
	}, nil
}

func (v *BookingValidator) checkRequired(c *model.Candidate) error {
	err := v.validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		v.logger.Error("Unexpected struct validation failure", "error", err)
		return bookingserrors.Reject(bookingserrors.ErrVenueRequired)
	}

	switch validationErrs[0].StructField() {
	case "Venue":
		return bookingserrors.Reject(bookingserrors.ErrVenueRequired)
	case "Room":
		return bookingserrors.Reject(bookingserrors.ErrRoomRequired)
	default:
		return bookingserrors.Reject(bookingserrors.ErrPartySizeRequired)
	}
}

// checkConflicts scans existing reservations in store order. An overlap with
// one of the owner's own bookings is reported before a room clash.
func checkConflicts(c *model.Candidate, existing []*model.Reservation) error {
	for _, e := range existing {
		if e == nil || e.Date.Compare(c.Date) != 0 || !e.Overlaps(c.Start, c.End) {
			continue
		}
		if strings.TrimSpace(e.OwnerID) == c.OwnerID {
			return bookingserrors.Reject(bookingserrors.ErrOwnerConflict)
		}
		if e.Venue == c.Venue && e.Room == c.Room {
			return bookingserrors.Reject(bookingserrors.ErrRoomConflict)
		}
	}
	return nil
}

func checkParticipants(c *model.Candidate, roster Directory) ([]model.Participant, error) {
	accepted := make([]model.Participant, 0, len(c.Participants))
	seen := make(map[string]struct{}, len(c.Participants))

	for i, p := range c.Participants {
		row := i + 1
		if p.ID == "" || p.Name == "" {
			return nil, bookingserrors.RejectRow(bookingserrors.ErrIncompleteRow, row)
		}
		if p.ID == c.OwnerID {
			return nil, bookingserrors.RejectRow(bookingserrors.ErrOwnerDuplicated, row)
		}

		var identity model.Identity
		var ok bool
		if roster != nil {
			identity, ok = roster.Lookup(p.ID)
		}
		if !ok || !strings.EqualFold(identity.Name, p.Name) {
			return nil, bookingserrors.RejectRow(bookingserrors.ErrInvalidIdentity, row)
		}

		if _, dup := seen[p.ID]; dup {
			return nil, bookingserrors.RejectRow(bookingserrors.ErrDuplicateID, row)
		}
		seen[p.ID] = struct{}{}
		accepted = append(accepted, model.Participant{ID: p.ID, Name: identity.Name})
	}

	return accepted, nil
}

func normalize(in *model.Candidate) *model.Candidate {
	if in == nil {
		return &model.Candidate{}
	}
	out := *in
	out.Venue = strings.TrimSpace(in.Venue)
	out.Room = strings.TrimSpace(in.Room)
	out.OwnerID = strings.TrimSpace(in.OwnerID)
	out.OwnerName = strings.TrimSpace(in.OwnerName)
	out.Participants = make([]model.Participant, len(in.Participants))
	for i, p := range in.Participants {
		out.Participants[i] = model.Participant{
			ID:   strings.TrimSpace(p.ID),
			Name: strings.TrimSpace(p.Name),
		}
	}
	return &out
}
