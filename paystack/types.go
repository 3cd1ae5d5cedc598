package paystack

import "encoding/json"

// StatusSuccess is the transaction status Paystack reports once a charge
// has been completed.
const StatusSuccess = "success"

// InitializeRequest is the payload for POST /transaction/initialize.
// Amount is in minor units (kobo for NGN, cents for USD).
type InitializeRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Channels    []string               `json:"channels,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// InitializeResponse is Paystack's envelope for an initialize call.
type InitializeResponse struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    InitializeData `json:"data"`
}

// InitializeData carries the hosted checkout handle for a new transaction.
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResponse is Paystack's envelope for a verify call.
type VerifyResponse struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    VerifyData `json:"data"`
}

// VerifyData is the transaction detail block of a verify response.
// Metadata stays raw: Paystack sends an empty string instead of an object
// when no metadata was attached.
type VerifyData struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	PaidAt          string          `json:"paid_at"`
	GatewayResponse string          `json:"gateway_response"`
	Customer        Customer        `json:"customer"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// Succeeded reports whether the transaction completed successfully.
// Other statuses ("failed", "abandoned", "pending") all count as not paid.
func (d VerifyData) Succeeded() bool {
	return d.Status == StatusSuccess
}

// Customer identifies the payer on a transaction.
type Customer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code,omitempty"`
}

// ErrorResponse is Paystack's envelope for a rejected call.
type ErrorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}
