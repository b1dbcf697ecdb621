package model

import (
	"strings"
	"time"

	"roombook/pkg/calendar"

	"github.com/google/uuid"
)

// reservationNamespace seeds the UUIDv5 keys derived from a reservation's
// identifying fields.
var reservationNamespace = uuid.MustParse("5b1b8f0e-8f54-4c3e-9b7a-2f0e6d1c4a90")

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Reservation struct {
	Venue        string         `json:"venue"`
	Room         string         `json:"room"`
	Date         calendar.Date  `json:"date"`
	Start        calendar.Clock `json:"start"`
	End          calendar.Clock `json:"end"`
	PartySize    int            `json:"pax"`
	OwnerID      string         `json:"owner_id"`
	OwnerName    string         `json:"owner_name"`
	Participants []Participant  `json:"members"`
}

// Key identifies a reservation by venue, room, date, window and owner. Two
// records with the same key are the same booking.
func (r *Reservation) Key() string {
	parts := []string{r.Venue, r.Room, r.Date.String(), r.Start.String(), r.End.String(), r.OwnerID}
	return uuid.NewSHA1(reservationNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

func (r *Reservation) Overlaps(start, end calendar.Clock) bool {
	return calendar.Overlaps(start, end, r.Start, r.End)
}

// IsOwner matches the owner id exactly or the owner name ignoring case.
func (r *Reservation) IsOwner(userKey string) bool {
	key := strings.TrimSpace(userKey)
	if key == "" {
		return false
	}
	return strings.TrimSpace(r.OwnerID) == key || strings.EqualFold(strings.TrimSpace(r.OwnerName), key)
}

// Involves reports whether userKey is the owner or one of the participants.
// Identifiers match exactly, names ignoring case.
func (r *Reservation) Involves(userKey string) bool {
	if r.IsOwner(userKey) {
		return true
	}
	key := strings.TrimSpace(userKey)
	if key == "" {
		return false
	}
	for _, p := range r.Participants {
		if strings.TrimSpace(p.ID) == key || strings.EqualFold(strings.TrimSpace(p.Name), key) {
			return true
		}
	}
	return false
}

// EndsAfter reports whether the reservation is still upcoming at now.
func (r *Reservation) EndsAfter(now time.Time) bool {
	today := calendar.DateOf(now)
	if r.Date.After(today) {
		return true
	}
	return r.Date.Compare(today) == 0 && r.End.After(now)
}

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Candidate is a booking request as entered, before validation.
type Candidate struct {
	Venue        string         `json:"venue" validate:"selected"`
	Room         string         `json:"room" validate:"selected"`
	Date         calendar.Date  `json:"date"`
	Start        calendar.Clock `json:"start"`
	End          calendar.Clock `json:"end"`
	PartySize    int            `json:"pax" validate:"required,min=1"`
	OwnerID      string         `json:"owner_id"`
	OwnerName    string         `json:"owner_name"`
	Participants []Participant  `json:"members"`
}
