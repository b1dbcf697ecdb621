package venues

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"roombook/pkg/logger"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownVenue = errors.New("unknown venue")
	ErrUnknownRoom  = errors.New("unknown room")
	ErrPartySize    = errors.New("party size not allowed for this room")
)

type Room struct {
	Name        string   `json:"name" validate:"required"`
	VenueType   string   `json:"venue_type,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Capacity    []int    `json:"capacity" validate:"required,min=1,dive,min=1"`
	Equipment   []string `json:"equipment,omitempty"`
}

func (r Room) MinCapacity() int { return slices.Min(r.Capacity) }
func (r Room) MaxCapacity() int { return slices.Max(r.Capacity) }

func (r Room) Allows(partySize int) bool {
	return slices.Contains(r.Capacity, partySize)
}

type Venue struct {
	Name  string `json:"name" validate:"required"`
	Rooms []Room `json:"rooms" validate:"required,min=1,dive"`
}

// Catalogue lists the bookable venues and their rooms in display order.
type Catalogue struct {
	Venues []Venue `json:"venues" validate:"required,min=1,dive"`
}

// Load reads a JSON catalogue from path, or returns Default when path is
// empty.
func Load(path string, log *logger.Logger) (*Catalogue, error) {
	if path == "" {
		log.Info("Using built-in venue catalogue")
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue catalogue %s: %w", path, err)
	}

	var c Catalogue
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode venue catalogue %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	log.Info("Venue catalogue loaded", "path", path, "venues", len(c.Venues))
	return &c, nil
}

func (c *Catalogue) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid venue catalogue: %w", err)
	}
	for _, v := range c.Venues {
		seen := make(map[string]struct{}, len(v.Rooms))
		for _, r := range v.Rooms {
			if _, dup := seen[r.Name]; dup {
				return fmt.Errorf("invalid venue catalogue: room %q listed twice in %q", r.Name, v.Name)
			}
			seen[r.Name] = struct{}{}
		}
	}
	return nil
}

func (c *Catalogue) Venue(name string) (Venue, bool) {
	for _, v := range c.Venues {
		if v.Name == name {
			return v, true
		}
	}
	return Venue{}, false
}

func (c *Catalogue) Room(venue, room string) (Room, error) {
	v, ok := c.Venue(venue)
	if !ok {
		return Room{}, fmt.Errorf("%w: %s", ErrUnknownVenue, venue)
	}
	for _, r := range v.Rooms {
		if r.Name == room {
			return r, nil
		}
	}
	return Room{}, fmt.Errorf("%w: %s / %s", ErrUnknownRoom, venue, room)
}

// Check verifies venue, room and party size against the catalogue. Empty
// selections are left for the booking validator to report.
func (c *Catalogue) Check(venue, room string, partySize int) error {
	if venue == "" || room == "" {
		return nil
	}
	r, err := c.Room(venue, room)
	if err != nil {
		return err
	}
	if partySize > 0 && !r.Allows(partySize) {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrPartySize, partySize, r.MinCapacity(), r.MaxCapacity())
	}
	return nil
}

func Default() *Catalogue {
	discussion := func(name, location string, capacity ...int) Room {
		return Room{
			Name:        name,
			VenueType:   "Discussion Room",
			Location:    location,
			Description: "Discussion room with table seating",
			Capacity:    capacity,
			Equipment:   []string{"Whiteboard", "TV Screen", "HDMI"},
		}
	}

	return &Catalogue{Venues: []Venue{
		{Name: "Library", Rooms: []Room{
			discussion("Room A", "Library Level 1", 2, 3, 4),
			discussion("Room B", "Library Level 1", 2, 3, 4),
			discussion("Room C", "Library Level 2", 4, 5, 6, 7, 8),
		}},
		{Name: "Cyber Center", Rooms: []Room{
			discussion("CC-1", "Cyber Center Ground Floor", 2, 3, 4, 5, 6),
			discussion("CC-2", "Cyber Center Ground Floor", 2, 3, 4, 5, 6),
		}},
		{Name: "Faculty Block A", Rooms: []Room{
			discussion("A-101", "Block A Level 1", 3, 4, 5, 6),
			discussion("A-102", "Block A Level 1", 3, 4, 5, 6),
		}},
		{Name: "Faculty Block B", Rooms: []Room{
			discussion("B-201", "Block B Level 2", 2, 3, 4),
		}},
		{Name: "Student Hub", Rooms: []Room{
			discussion("Hub Pod 1", "Student Hub Level 1", 1, 2),
			discussion("Hub Pod 2", "Student Hub Level 1", 1, 2),
		}},
		{Name: "Research Center", Rooms: []Room{
			discussion("RC Seminar", "Research Center Level 3", 6, 7, 8, 9, 10),
		}},
	}}
}
