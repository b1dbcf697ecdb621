package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"roombook/internal/bookings/service"
	"roombook/internal/identity"
	"roombook/pkg/calendar"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
)

// BookingRequest is the JSON body of a booking. User is the signed-in user
// key; the owner identity is resolved from it through the roster.
type BookingRequest struct {
	Venue     string              `json:"venue"`
	Room      string              `json:"room"`
	Date      string              `json:"date" validate:"required"`
	Start     string              `json:"start" validate:"required"`
	End       string              `json:"end" validate:"required"`
	PartySize int                 `json:"pax"`
	User      string              `json:"user" validate:"required"`
	Members   []model.Participant `json:"members"`
}

// BookingView is a reservation as returned to clients, with its key.
type BookingView struct {
	Key string `json:"id"`
	*model.Reservation
}

func toView(r *model.Reservation) BookingView {
	return BookingView{Key: r.Key(), Reservation: r}
}

func toViews(rs []*model.Reservation) []BookingView {
	views := make([]BookingView, 0, len(rs))
	for _, r := range rs {
		views = append(views, toView(r))
	}
	return views
}

type BookingHandler struct {
	service  service.BookingService
	roster   *identity.Roster
	validate *validator.Validate
	log      *logger.Logger
}

func NewBookingHandler(service service.BookingService, roster *identity.Roster, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		roster:   roster,
		validate: validator.New(),
		log:      log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge))
			return
		}
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	candidate, err := h.toCandidate(&req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.service.Book(r.Context(), candidate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, toView(reservation))
}

func (h *BookingHandler) toCandidate(req *BookingRequest) (*model.Candidate, error) {
	if err := h.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := make(map[string]any, len(validationErrs))
			for _, fe := range validationErrs {
				details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
			return nil, apperrors.Validation("Missing required fields", details)
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", req.Date))
	}
	start, err := calendar.ParseClock(req.Start)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid start time %q", req.Start))
	}
	end, err := calendar.ParseClock(req.End)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid end time %q", req.End))
	}

	owner := h.roster.Owner(req.User)
	return &model.Candidate{
		Venue:        req.Venue,
		Room:         req.Room,
		Date:         date,
		Start:        start,
		End:          end,
		PartySize:    req.PartySize,
		OwnerID:      owner.ID,
		OwnerName:    owner.Name,
		Participants: req.Members,
	}, nil
}

func (h *BookingHandler) Upcoming(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.Upcoming(r.Context(), r.URL.Query().Get("user"))
	h.writeList(w, bookings, err)
}

func (h *BookingHandler) Past(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.Past(r.Context(), r.URL.Query().Get("user"))
	h.writeList(w, bookings, err)
}

func (h *BookingHandler) Cancelled(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.Cancelled(r.Context(), r.URL.Query().Get("user"))
	h.writeList(w, bookings, err)
}

func (h *BookingHandler) writeList(w http.ResponseWriter, bookings []*model.Reservation, err error) {
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, toViews(bookings), len(bookings))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.Cancel(r.Context(), r.URL.Query().Get("user"), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, toView(reservation))
}

func (h *BookingHandler) Venues(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	venues := h.service.Venues()
	httputil.WriteList(w, venues, len(venues))
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	raw := r.URL.Query().Get("date")
	date, err := calendar.ParseDate(raw)
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", raw)))
		return
	}

	availability, err := h.service.Availability(r.Context(), ps.ByName("venue"), date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, availability)
}

func (h *BookingHandler) Dates(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	dates := h.service.Dates()
	httputil.WriteList(w, dates, len(dates))
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/upcoming", h.Upcoming)
	router.GET("/api/v1/bookings/past", h.Past)
	router.GET("/api/v1/bookings/cancelled", h.Cancelled)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
	router.GET("/api/v1/venues", h.Venues)
	router.GET("/api/v1/venues/:venue/availability", h.Availability)
	router.GET("/api/v1/dates", h.Dates)
}
