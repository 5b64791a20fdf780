package event

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/response"
)

// Handler holds HTTP handlers for event endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

// NewHandler creates a new event Handler.
func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type eventRequest struct {
	Title       string    `json:"title"       example:"Hackathon 2026"`
	Description string    `json:"description" example:"24 hour build sprint"`
	Venue       string    `json:"venue"       example:"Main Auditorium"`
	StartsAt    time.Time `json:"startsAt"    example:"2026-11-01T09:00:00Z"`
	Fee         int64     `json:"fee"         example:"500"`
	CollegeID   *string   `json:"collegeId"   example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

func (req eventRequest) fields() Fields {
	return Fields{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		Fee:         req.Fee,
		CollegeID:   req.CollegeID,
	}
}

// Create godoc
//
//	@Summary	Create event
//	@Tags		events
//	@Accept		json
//	@Produce	json
//	@Security	CookieAuth
//	@Param		request	body		eventRequest	true	"Event"
//	@Success	201		{object}	response.Envelope{data=Event}
//	@Failure	400		{object}	response.Envelope
//	@Failure	401		{object}	response.Envelope
//	@Router		/event/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	var req eventRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	e, err := h.svc.Create(r.Context(), claims.UserID(), req.fields())
	if err != nil {
		h.writeError(w, "create event", err)
		return
	}
	response.Created(w, "event created", e)
}

// List godoc
//
//	@Summary	List events
//	@Tags		events
//	@Produce	json
//	@Success	200	{object}	response.Envelope{data=[]Event}
//	@Router		/event/all [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, "list events", err)
		return
	}
	response.OK(w, "events fetched", events)
}

// Update godoc
//
//	@Summary		Update event
//	@Description	Only the creator of an event may update it.
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Security		CookieAuth
//	@Param			eventId	path		string			true	"Event ID"
//	@Param			request	body		eventRequest	true	"Event"
//	@Success		200		{object}	response.Envelope{data=Event}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/event/update/{eventId} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	var req eventRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	e, err := h.svc.Update(r.Context(), claims.UserID(), chi.URLParam(r, "eventId"), req.fields())
	if err != nil {
		h.writeError(w, "update event", err)
		return
	}
	response.OK(w, "event updated", e)
}

// MyEvents godoc
//
//	@Summary	Events I created
//	@Tags		events
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	response.Envelope{data=[]Event}
//	@Failure	401	{object}	response.Envelope
//	@Router		/event/my-events [get]
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	events, err := h.svc.MyEvents(r.Context(), claims.UserID())
	if err != nil {
		h.writeError(w, "my events", err)
		return
	}
	response.OK(w, "events fetched", events)
}

// Register godoc
//
//	@Summary	Register for event
//	@Tags		events
//	@Produce	json
//	@Security	CookieAuth
//	@Param		eventId	path		string	true	"Event ID"
//	@Success	201		{object}	response.Envelope
//	@Failure	401		{object}	response.Envelope
//	@Failure	404		{object}	response.Envelope
//	@Failure	409		{object}	response.Envelope
//	@Router		/event/register/{eventId} [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	if err := h.svc.Register(r.Context(), chi.URLParam(r, "eventId"), claims.UserID()); err != nil {
		h.writeError(w, "register for event", err)
		return
	}
	response.Created(w, "registered for event", nil)
}

// RegisteredEvents godoc
//
//	@Summary	Events I registered for
//	@Tags		events
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	response.Envelope{data=[]Event}
//	@Failure	401	{object}	response.Envelope
//	@Router		/event/registered-events [get]
func (h *Handler) RegisteredEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	events, err := h.svc.RegisteredEvents(r.Context(), claims.UserID())
	if err != nil {
		h.writeError(w, "registered events", err)
		return
	}
	response.OK(w, "registered events fetched", events)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidFields), errors.Is(err, ErrUnknownCollege):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotCreator):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(w, err.Error())
	default:
		h.log.Error(op, logging.Err(err))
		response.InternalError(w)
	}
}
