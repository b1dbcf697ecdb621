package model

import "roombook/pkg/calendar"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotPast      SlotStatus = "past"
)

type Slot struct {
	Start  calendar.Clock `json:"start"`
	End    calendar.Clock `json:"end"`
	Status SlotStatus     `json:"status"`
}

type RoomAvailability struct {
	Room  string `json:"room"`
	Slots []Slot `json:"slots"`
}

type VenueAvailability struct {
	Venue string             `json:"venue"`
	Date  calendar.Date      `json:"date"`
	Rooms []RoomAvailability `json:"rooms"`
}
