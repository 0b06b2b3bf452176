package custody

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetBalanceRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["operation"] != "GetBalance" {
			t.Fatalf("unexpected operation: %v", req["operation"])
		}
		auth, ok := req["auth"].(map[string]any)
		if !ok || auth["process_address"] != "operator@hallman.hypr" {
			t.Fatalf("unexpected auth block: %v", req["auth"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"balance": "1000000000000000000"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "operator@hallman.hypr", nil)
	balance, err := client.GetBalance(context.Background(), "0xabc", 8453)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != "1000000000000000000" {
		t.Fatalf("unexpected balance: %s", balance)
	}
}

func TestCallSurfacesCustodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"message": "insufficient balance"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "operator@hallman.hypr", nil)
	_, err := client.SendEth(context.Background(), "wallet-1", "0xabc", "100", 8453)
	if err == nil {
		t.Fatalf("expected error")
	}
	custodyErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %v (%T)", err, err)
	}
	if custodyErr.Message != "insufficient balance" {
		t.Fatalf("unexpected message: %s", custodyErr.Message)
	}
}
