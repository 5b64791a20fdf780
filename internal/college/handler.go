package college

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/response"
)

// Handler holds HTTP handlers for college endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

// NewHandler creates a new college Handler.
func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type collegeRequest struct {
	Name string `json:"name" example:"Government Engineering College"`
	City string `json:"city" example:"Pune"`
}

// Create godoc
//
//	@Summary	Create college
//	@Tags		colleges
//	@Accept		json
//	@Produce	json
//	@Param		request	body		collegeRequest	true	"College"
//	@Success	201		{object}	response.Envelope{data=College}
//	@Failure	400		{object}	response.Envelope
//	@Failure	409		{object}	response.Envelope
//	@Router		/college/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req collegeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), req.Name, req.City)
	if err != nil {
		h.writeError(w, "create college", err)
		return
	}
	response.Created(w, "college created", c)
}

// List godoc
//
//	@Summary	List colleges
//	@Tags		colleges
//	@Produce	json
//	@Success	200	{object}	response.Envelope{data=[]College}
//	@Router		/college/all [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	colleges, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, "list colleges", err)
		return
	}
	response.OK(w, "colleges fetched", colleges)
}

// Update godoc
//
//	@Summary	Update college
//	@Tags		colleges
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"College ID"
//	@Param		request	body		collegeRequest	true	"College"
//	@Success	200		{object}	response.Envelope{data=College}
//	@Failure	400		{object}	response.Envelope
//	@Failure	404		{object}	response.Envelope
//	@Failure	409		{object}	response.Envelope
//	@Router		/college/update/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req collegeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.City)
	if err != nil {
		h.writeError(w, "update college", err)
		return
	}
	response.OK(w, "college updated", c)
}

// Delete godoc
//
//	@Summary	Delete college
//	@Tags		colleges
//	@Produce	json
//	@Param		id	path		string	true	"College ID"
//	@Success	200	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/college/delete/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete college", err)
		return
	}
	response.OK(w, "college deleted", nil)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNameRequired):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrDuplicateName):
		response.Conflict(w, err.Error())
	default:
		h.log.Error(op, logging.Err(err))
		response.InternalError(w)
	}
}
