package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campusreg/service/internal/event"
	"github.com/campusreg/service/internal/logging"
	"github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/response"
)

const (
	// MaxScreenshotBytes is the largest accepted screenshot.
	MaxScreenshotBytes = 5 << 20
	maxRequestBytes    = MaxScreenshotBytes + 1<<20
	formMemoryBytes    = 1 << 20
)

// Handler holds HTTP handlers for payment endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

// NewHandler creates a new payment Handler.
func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type statusRequest struct {
	Status  string `json:"status"  example:"Approved"`
	Remarks string `json:"remarks" example:"verified against bank statement"`
}

// Upload godoc
//
//	@Summary		Upload payment proof
//	@Description	Submit a payment screenshot for an event the caller registered for. Re-uploading replaces a proof that is not yet approved.
//	@Tags			payments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		CookieAuth
//	@Param			screenshot		formData	file	true	"Image or PDF, at most 5 MiB"
//	@Param			eventId			formData	string	true	"Event ID"
//	@Param			transactionId	formData	string	true	"Bank transaction reference"
//	@Param			amount			formData	integer	true	"Amount paid"
//	@Success		201				{object}	response.Envelope{data=Payment}
//	@Success		200				{object}	response.Envelope{data=Payment}
//	@Failure		400				{object}	response.Envelope
//	@Failure		401				{object}	response.Envelope
//	@Failure		403				{object}	response.Envelope
//	@Failure		404				{object}	response.Envelope
//	@Failure		409				{object}	response.Envelope
//	@Failure		413				{object}	response.Envelope
//	@Router			/Upload-Payment-Info [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "screenshot must be at most 5 MiB")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		response.BadRequest(w, "screenshot file is required")
		return
	}
	defer file.Close()
	if header.Size > MaxScreenshotBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "screenshot must be at most 5 MiB")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxScreenshotBytes+1))
	if err != nil {
		response.BadRequest(w, "could not read screenshot")
		return
	}
	if len(data) > MaxScreenshotBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "screenshot must be at most 5 MiB")
		return
	}
	if len(data) == 0 {
		response.BadRequest(w, "screenshot file is empty")
		return
	}

	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil {
		response.BadRequest(w, "amount must be a whole number")
		return
	}

	p, created, err := h.svc.Upload(r.Context(), UploadInput{
		UserID:        claims.UserID(),
		EventID:       r.FormValue("eventId"),
		TransactionID: r.FormValue("transactionId"),
		Amount:        amount,
		Screenshot:    data,
		ContentType:   http.DetectContentType(data),
	})
	if err != nil {
		h.writeError(w, "upload payment", err)
		return
	}
	if created {
		response.Created(w, "payment submitted", p)
		return
	}
	response.OK(w, "payment proof replaced", p)
}

// List godoc
//
//	@Summary	List payments
//	@Tags		payments
//	@Produce	json
//	@Security	CookieAuth
//	@Param		status	query		string	false	"Filter by status"	Enums(Pending, Approved, Rejected)
//	@Success	200		{object}	response.Envelope{data=[]Payment}
//	@Failure	400		{object}	response.Envelope
//	@Failure	401		{object}	response.Envelope
//	@Failure	403		{object}	response.Envelope
//	@Router		/View-All-Payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, "list payments", err)
		return
	}
	response.OK(w, "payments fetched", payments)
}

// UpdateStatus godoc
//
//	@Summary	Review payment
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Security	CookieAuth
//	@Param		paymentId	path		string			true	"Payment ID"
//	@Param		request		body		statusRequest	true	"Decision"
//	@Success	200			{object}	response.Envelope{data=Payment}
//	@Failure	400			{object}	response.Envelope
//	@Failure	401			{object}	response.Envelope
//	@Failure	403			{object}	response.Envelope
//	@Failure	404			{object}	response.Envelope
//	@Router		/Update-Payment-Status/{paymentId} [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	var req statusRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	p, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "paymentId"), req.Status, req.Remarks, claims.UserID())
	if err != nil {
		h.writeError(w, "update payment status", err)
		return
	}
	response.OK(w, "payment status updated", p)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFile), errors.Is(err, ErrInvalidStatus):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotRegistered):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, event.ErrNotFound):
		response.NotFound(w, "event not found")
	case errors.Is(err, ErrAlreadyApproved), errors.Is(err, ErrDuplicate):
		response.Conflict(w, err.Error())
	default:
		h.log.Error(op, logging.Err(err))
		response.InternalError(w)
	}
}
