package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	paygate "github.com/dfirstlabs/paygate"
)

func TestNewClient(t *testing.T) {
	// Test with default config
	client := NewClient(nil)
	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("Expected default URL %s, got %s", DefaultBaseURL, client.baseURL)
	}

	// Test with custom config
	client = NewClient(&Config{
		BaseURL:   "https://paystack.example.com",
		SecretKey: "sk_test_abc",
	})
	if client.baseURL != "https://paystack.example.com" {
		t.Errorf("Expected custom URL, got %s", client.baseURL)
	}
	if client.secretKey != "sk_test_abc" {
		t.Errorf("Expected secret key sk_test_abc, got %s", client.secretKey)
	}
}

func TestClientInitialize(t *testing.T) {
	ctx := context.Background()

	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("Expected path /transaction/initialize, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_abc" {
			t.Errorf("Expected 'Bearer sk_test_abc', got %s", auth)
		}

		// Check request body carries the minor-unit amount
		var requestBody map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if requestBody["amount"].(float64) != 1000 {
			t.Errorf("Expected amount 1000 in request, got %v", requestBody["amount"])
		}
		if requestBody["email"].(string) != "trader@example.com" {
			t.Errorf("Expected email trader@example.com, got %v", requestBody["email"])
		}

		// Return success response
		response := InitializeResponse{
			Status:  true,
			Message: "Authorization URL created",
			Data: InitializeData{
				AuthorizationURL: "https://checkout.paystack.com/abc123",
				AccessCode:       "abc123",
				Reference:        "trx-1001",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewClient(&Config{
		BaseURL:   server.URL,
		SecretKey: "sk_test_abc",
	})

	response, err := client.Initialize(ctx, &InitializeRequest{
		Email:     "trader@example.com",
		Amount:    1000,
		Reference: "trx-1001",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !response.Status {
		t.Error("Expected status true")
	}
	if response.Data.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Errorf("Expected authorization URL, got %s", response.Data.AuthorizationURL)
	}
	if response.Data.Reference != "trx-1001" {
		t.Errorf("Expected reference trx-1001, got %s", response.Data.Reference)
	}
}

func TestClientVerify(t *testing.T) {
	ctx := context.Background()

	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/trx-1001" {
			t.Errorf("Expected path /transaction/verify/trx-1001, got %s", r.URL.Path)
		}
		if r.Method != "GET" {
			t.Errorf("Expected GET, got %s", r.Method)
		}

		// Return success response
		response := VerifyResponse{
			Status:  true,
			Message: "Verification successful",
			Data: VerifyData{
				ID:        12345,
				Status:    "success",
				Reference: "trx-1001",
				Amount:    1000,
				Currency:  "NGN",
				Channel:   "card",
				Customer:  Customer{Email: "trader@example.com"},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewClient(&Config{
		BaseURL:   server.URL,
		SecretKey: "sk_test_abc",
	})

	response, err := client.Verify(ctx, "trx-1001")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !response.Data.Succeeded() {
		t.Error("Expected transaction to have succeeded")
	}
	if response.Data.Reference != "trx-1001" {
		t.Errorf("Expected reference trx-1001, got %s", response.Data.Reference)
	}
	if response.Data.Customer.Email != "trader@example.com" {
		t.Errorf("Expected customer email, got %s", response.Data.Customer.Email)
	}
}

func TestClientVerifyStringMetadata(t *testing.T) {
	ctx := context.Background()

	// Paystack sends metadata as an empty string when none was attached;
	// decoding must not fail on it
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"abandoned","reference":"trx-2002","amount":500,"metadata":""}}`))
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, SecretKey: "sk_test_abc"})

	response, err := client.Verify(ctx, "trx-2002")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if response.Data.Succeeded() {
		t.Error("Expected abandoned transaction to not be successful")
	}
}

func TestClientUpstreamError(t *testing.T) {
	ctx := context.Background()

	// Create test server that rejects the call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{
			Status:  false,
			Message: "Transaction reference not found",
		})
	}))
	defer server.Close()

	client := NewClient(&Config{
		BaseURL:   server.URL,
		SecretKey: "sk_test_abc",
	})

	_, err := client.Verify(ctx, "missing-ref")
	if err == nil {
		t.Fatal("Expected error for missing reference")
	}

	gwErr, ok := err.(*paygate.GatewayError)
	if !ok {
		t.Fatalf("Expected *paygate.GatewayError, got %T", err)
	}
	if gwErr.Code != paygate.ErrCodeUpstream {
		t.Errorf("Expected code %s, got %s", paygate.ErrCodeUpstream, gwErr.Code)
	}
	if gwErr.Message != "Transaction reference not found" {
		t.Errorf("Expected provider message to be preserved, got %s", gwErr.Message)
	}
}

func TestClientTransportError(t *testing.T) {
	ctx := context.Background()

	// Server is closed immediately so the call fails at the socket
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(&Config{
		BaseURL:   server.URL,
		SecretKey: "sk_test_abc",
	})

	if _, err := client.Initialize(ctx, &InitializeRequest{Email: "trader@example.com", Amount: 1000}); err == nil {
		t.Error("Expected transport error for initialize")
	}
	if _, err := client.Verify(ctx, "trx-1001"); err == nil {
		t.Error("Expected transport error for verify")
	}
}
