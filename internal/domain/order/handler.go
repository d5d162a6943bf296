package order

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context(), 100)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, o)
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	orders, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	orderID, _ := uuid.Parse(req.OrderID)
	o, err := h.svc.UpdateStatus(r.Context(), orderID, Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrInvalidStatus):
			response.BadRequest(w, "status must be COMPLETED or FAILED")
		case errors.Is(err, ErrFinalized):
			response.Conflict(w, "FINALIZED", "order already in a terminal state")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, o)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/{orderID}", h.GetByID)
	r.Get("/user/{userID}", h.ListByUser)
	r.Post("/update", h.UpdateStatus)
	return r
}
