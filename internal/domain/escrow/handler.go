package escrow

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greentrade/greentrade-api/internal/middleware"
	"github.com/greentrade/greentrade-api/internal/pkg/response"
	"github.com/greentrade/greentrade-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	if buyerID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	var req CreateEscrowRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	sellerID, _ := uuid.Parse(req.SellerID)
	listingID, _ := uuid.Parse(req.ListingID)
	e, err := h.svc.Create(r.Context(), buyerID, sellerID, listingID, req.Amount, req.ReleaseConditions)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, e)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	e, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	escrows, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, escrows)
}

func (h *Handler) Fund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	e, err := h.svc.Fund(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	e, err := h.svc.Release(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	var req DisputeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	e, err := h.svc.Dispute(r.Context(), id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	var req ResolveRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	e, err := h.svc.Resolve(r.Context(), id, Status(req.Outcome), req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "escrow not found")
	case errors.Is(err, ErrInvalidState):
		response.Conflict(w, "INVALID_STATE", "escrow state does not allow this transition")
	case errors.Is(err, ErrCaptureFailed):
		response.Error(w, http.StatusUnprocessableEntity, "CAPTURE_FAILED", "payment capture failed")
	case errors.Is(err, ErrRefundFailed):
		response.Error(w, http.StatusUnprocessableEntity, "REFUND_FAILED", "payment refund failed")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/create", h.Create)
	r.Get("/mine", h.ListMine)
	r.Get("/{escrowID}", h.GetByID)
	r.Post("/{escrowID}/fund", h.Fund)
	r.Post("/{escrowID}/release", h.Release)
	r.Post("/{escrowID}/dispute", h.Dispute)
	r.Post("/{escrowID}/resolve", h.Resolve)
	return r
}
