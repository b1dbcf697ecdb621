package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"roombook/pkg/calendar"
	"roombook/pkg/model"
)

// BookingRepository keeps the active reservations and the cancelled ones.
// A reservation lives in exactly one of the two at any time.
type BookingRepository interface {
	Append(ctx context.Context, reservation *model.Reservation) error
	List(ctx context.Context) ([]*model.Reservation, error)
	ListCancelled(ctx context.Context) ([]*model.Reservation, error)
	// Relocate moves the active reservation with the same key to the
	// cancelled set. It returns errors.ErrNotFound when there is none.
	Relocate(ctx context.Context, reservation *model.Reservation) error
}

// Columns is the persisted field order of a reservation record.
var Columns = []string{"venue", "room", "date", "start", "end", "pax", "owner_id", "owner_name", "members"}

const (
	memberSeparator = "; "
	memberFieldSep  = "|"
)

func encodeMembers(participants []model.Participant) string {
	parts := make([]string, 0, len(participants))
	for _, p := range participants {
		parts = append(parts, p.ID+memberFieldSep+p.Name)
	}
	return strings.Join(parts, memberSeparator)
}

func decodeMembers(s string) []model.Participant {
	var out []model.Participant
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, _ := strings.Cut(entry, memberFieldSep)
		out = append(out, model.Participant{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return out
}

func toRecord(r *model.Reservation) []string {
	return []string{
		r.Venue,
		r.Room,
		r.Date.String(),
		r.Start.String(),
		r.End.String(),
		strconv.Itoa(r.PartySize),
		r.OwnerID,
		r.OwnerName,
		encodeMembers(r.Participants),
	}
}

// fromFields builds a reservation from values keyed by column name.
func fromFields(get func(column string) string) (*model.Reservation, error) {
	date, err := calendar.ParseDate(get("date"))
	if err != nil {
		return nil, err
	}
	start, err := calendar.ParseClock(get("start"))
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseClock(get("end"))
	if err != nil {
		return nil, err
	}
	pax, err := strconv.Atoi(strings.TrimSpace(get("pax")))
	if err != nil {
		return nil, fmt.Errorf("invalid pax %q: %w", get("pax"), err)
	}

	return &model.Reservation{
		Venue:        get("venue"),
		Room:         get("room"),
		Date:         date,
		Start:        start,
		End:          end,
		PartySize:    pax,
		OwnerID:      strings.TrimSpace(get("owner_id")),
		OwnerName:    strings.TrimSpace(get("owner_name")),
		Participants: decodeMembers(get("members")),
	}, nil
}
