package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// APIError is a non-2xx answer from the bookings API.
type APIError struct {
	Status  int
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BookingRequest struct {
	Venue   string   `json:"venue"`
	Room    string   `json:"room"`
	Date    string   `json:"date"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Pax     int      `json:"pax"`
	User    string   `json:"user"`
	Members []Member `json:"members,omitempty"`
}

// Booking mirrors the reservation view returned by the API.
type Booking struct {
	ID        string   `json:"id"`
	Venue     string   `json:"venue"`
	Room      string   `json:"room"`
	Date      string   `json:"date"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Pax       int      `json:"pax"`
	OwnerID   string   `json:"owner_id"`
	OwnerName string   `json:"owner_name"`
	Members   []Member `json:"members"`
}

type Slot struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

type RoomAvailability struct {
	Room  string `json:"room"`
	Slots []Slot `json:"slots"`
}

type Availability struct {
	Venue string             `json:"venue"`
	Date  string             `json:"date"`
	Rooms []RoomAvailability `json:"rooms"`
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *BookingClient) Create(ctx context.Context, req BookingRequest) (*Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings", req)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data Booking `json:"data"`
	}
	if err := decode(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *BookingClient) Upcoming(ctx context.Context, user string) ([]Booking, error) {
	return c.list(ctx, "upcoming", user)
}

func (c *BookingClient) Past(ctx context.Context, user string) ([]Booking, error) {
	return c.list(ctx, "past", user)
}

func (c *BookingClient) Cancelled(ctx context.Context, user string) ([]Booking, error) {
	return c.list(ctx, "cancelled", user)
}

func (c *BookingClient) list(ctx context.Context, view, user string) ([]Booking, error) {
	q := url.Values{}
	q.Set("user", user)
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/"+view+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Booking `json:"data"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *BookingClient) Cancel(ctx context.Context, user, id string) (*Booking, error) {
	q := url.Values{}
	q.Set("user", user)
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/bookings/id/"+url.PathEscape(id)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var out struct {
		Data Booking `json:"data"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *BookingClient) Availability(ctx context.Context, venue, date string) (*Availability, error) {
	q := url.Values{}
	q.Set("date", date)
	resp, err := c.httpClient.GET(ctx, "/api/v1/venues/"+url.PathEscape(venue)+"/availability?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var out struct {
		Data Availability `json:"data"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *BookingClient) Dates(ctx context.Context) ([]string, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/dates")
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []string `json:"data"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func decode(resp *Response, want int, target any) error {
	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := resp.DecodeJSON(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = GetErrorMessage(resp)
		}
		return apiErr
	}
	if err := resp.DecodeJSON(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
