package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCaptureSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/payments/capture" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.PaymentID != "pay-1" {
			t.Errorf("unexpected payment id %q", req.PaymentID)
		}
		json.NewEncoder(w).Encode(CaptureResponse{PaymentID: req.PaymentID, Status: "captured"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	resp, err := c.Capture(context.Background(), CaptureRequest{
		PaymentID: "pay-1",
		BuyerID:   "buyer-1",
		Amount:    decimal.NewFromInt(50),
		Reference: "escrow-1",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if resp.Status != "captured" {
		t.Fatalf("expected captured, got %q", resp.Status)
	}
}

func TestCaptureDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CaptureResponse{PaymentID: "pay-1", Status: "declined"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Capture(context.Background(), CaptureRequest{
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(50),
	})
	if err == nil || !strings.Contains(err.Error(), "declined") {
		t.Fatalf("expected declined error, got %v", err)
	}
}

func TestCaptureGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Capture(context.Background(), CaptureRequest{
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(50),
	})
	if err == nil || !strings.Contains(err.Error(), "non-2xx") {
		t.Fatalf("expected non-2xx error, got %v", err)
	}
}

func TestCaptureValidation(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:1"})

	if _, err := c.Capture(context.Background(), CaptureRequest{PaymentID: "p", Amount: decimal.Zero}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := c.Capture(context.Background(), CaptureRequest{Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected error for empty payment id")
	}
}
