package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greentrade/greentrade-api/internal/domain/escrow"
	"github.com/greentrade/greentrade-api/internal/domain/ledger"
	"github.com/greentrade/greentrade-api/internal/domain/listing"
	"github.com/greentrade/greentrade-api/internal/domain/order"
)

// Mounting every domain router must register the full API surface without
// route conflicts (chi panics on duplicates).
func TestRouterMountsAllDomains(t *testing.T) {
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Fatalf("mounting routes panicked: %v", rec)
			}
		}()
		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/wallet", ledger.NewHandler(nil).Routes(passthrough))
			r.Mount("/listings", listing.NewHandler(listing.NewService(nil, nil, nil, time.Second)).Routes(passthrough))
			r.Mount("/orders", order.NewHandler(nil).Routes(passthrough))
			r.Route("/payments", func(r chi.Router) {
				r.Mount("/escrow", escrow.NewHandler(nil).Routes(passthrough))
			})
		})
	}()

	want := []string{
		"POST /api/v1/wallet/transfer",
		"GET /api/v1/wallet/audit",
		"POST /api/v1/listings/",
		"POST /api/v1/listings/{listingID}/purchase",
		"POST /api/v1/listings/{listingID}/bids",
		"POST /api/v1/listings/{listingID}/close",
		"GET /api/v1/orders/",
		"POST /api/v1/orders/update",
		"POST /api/v1/payments/escrow/{escrowID}/fund",
		"POST /api/v1/payments/escrow/{escrowID}/resolve",
	}

	found := map[string]bool{}
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		found[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("walking routes failed: %v", err)
	}

	for _, route := range want {
		if !found[route] {
			t.Errorf("route not registered: %s", route)
		}
	}
}
