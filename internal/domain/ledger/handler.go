package ledger

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greentrade/greentrade-api/internal/pkg/response"
	"github.com/greentrade/greentrade-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	ownerID, _ := uuid.Parse(req.UserID)
	wallet, err := h.svc.CreateWallet(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, ErrWalletExists) {
			response.Conflict(w, "ALREADY_EXISTS", "wallet already exists for user")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, wallet)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	wallet, err := h.svc.GetWallet(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			response.NotFound(w, "wallet not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, wallet)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			response.NotFound(w, "wallet not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), ownerID, 100)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			response.NotFound(w, "wallet not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, txs)
}

func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	ownerID, _ := uuid.Parse(req.UserID)
	entry, err := h.svc.Mint(r.Context(), ownerID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, entry)
}

func (h *Handler) Burn(w http.ResponseWriter, r *http.Request) {
	var req BurnRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	ownerID, _ := uuid.Parse(req.UserID)
	entry, err := h.svc.Burn(r.Context(), ownerID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, entry)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	fromID, _ := uuid.Parse(req.FromUserID)
	toID, _ := uuid.Parse(req.ToUserID)
	entry, err := h.svc.Transfer(r.Context(), fromID, toID, req.Amount, "")
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, entry)
}

func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.Audit(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{
		"totals":   totals,
		"balanced": totals.Balanced(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrSameWallet):
		response.BadRequest(w, "sender and recipient must differ")
	case errors.Is(err, ErrWalletNotFound):
		response.NotFound(w, "sender wallet not found")
	case errors.Is(err, ErrInsufficientBalance):
		response.BadRequest(w, "insufficient credit balance")
	case errors.Is(err, ErrReferenceConflict):
		response.Conflict(w, "CONFLICT", "reference already used with a different transfer")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/create", h.CreateWallet)
	r.Post("/mint", h.Mint)
	r.Post("/burn", h.Burn)
	r.Post("/transfer", h.Transfer)
	r.Get("/audit", h.Audit)
	r.Get("/{userID}", h.GetWallet)
	r.Get("/{userID}/balance", h.Balance)
	r.Get("/{userID}/transactions", h.Transactions)
	return r
}
