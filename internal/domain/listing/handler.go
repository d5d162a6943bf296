package listing

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
	sellerID := middleware.GetUserID(r.Context())
	if sellerID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	var req CreateListingRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	l, err := h.svc.Create(r.Context(), sellerID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, l)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, listings)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	l, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, l)
}

func (h *Handler) ListBySeller(w http.ResponseWriter, r *http.Request) {
	sellerID, err := uuid.Parse(chi.URLParam(r, "sellerID"))
	if err != nil {
		response.BadRequest(w, "invalid seller id")
		return
	}

	listings, err := h.svc.ListBySeller(r.Context(), sellerID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, listings)
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	if buyerID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	listingID, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	orderID, err := h.svc.PurchaseFixed(r.Context(), listingID, buyerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"order_id": orderID})
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	bidderID := middleware.GetUserID(r.Context())
	if bidderID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	listingID, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	var req PlaceBidRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	bid, err := h.svc.PlaceBid(r.Context(), listingID, bidderID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, bid)
}

func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	listingID, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	bids, err := h.svc.ListBids(r.Context(), listingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, bids)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == uuid.Nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	listingID, err := uuid.Parse(chi.URLParam(r, "listingID"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	l, err := h.svc.GetByID(r.Context(), listingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if l.SellerID != callerID {
		response.Forbidden(w, "only the seller can close the auction")
		return
	}

	result, err := h.svc.CloseAuction(r.Context(), listingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "listing not found")
	case errors.Is(err, ErrAlreadySold):
		response.Conflict(w, "ALREADY_SOLD", "listing is no longer available")
	case errors.Is(err, ErrSelfTrade):
		response.BadRequest(w, "cannot trade with yourself")
	case errors.Is(err, ErrWrongKind):
		response.BadRequest(w, "operation does not match listing kind")
	case errors.Is(err, ErrBidTooLow):
		response.BadRequest(w, "bid must exceed the current best bid")
	case errors.Is(err, ErrNoBids):
		response.Conflict(w, "NO_BIDS", "auction has no bids")
	case errors.Is(err, ErrSettlementFailed):
		response.Error(w, http.StatusUnprocessableEntity, "SETTLEMENT_FAILED", err.Error())
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{listingID}", h.GetByID)
	r.Get("/{listingID}/bids", h.ListBids)
	r.Get("/seller/{sellerID}", h.ListBySeller)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Post("/{listingID}/purchase", h.Purchase)
		r.Post("/{listingID}/bids", h.PlaceBid)
		r.Post("/{listingID}/close", h.Close)
	})
	return r
}
