// Package paygate provides the core types and verification store for a
// small payment gateway that proxies initialize, verify, and webhook
// operations to Paystack and to the M-Pesa Daraja STK-Push API.
package paygate

import (
	"encoding/json"
	"math"
	"time"
)

// ============================================================================
// Core Types
// ============================================================================

// Channel identifies the upstream rail a payment travels on.
type Channel string

const (
	// ChannelCard is a card or bank payment handled by Paystack.
	ChannelCard Channel = "card"
	// ChannelMobileMoney is an M-Pesa STK-Push payment.
	ChannelMobileMoney Channel = "mobile-money"
)

// PaymentIntent is the payload of a single initialize call. It exists only
// for the duration of that call and is never persisted.
type PaymentIntent struct {
	Email       string                 `json:"email,omitempty"`
	PhoneNumber string                 `json:"phoneNumber,omitempty"`
	Amount      float64                `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks presence of the fields an initialize call requires for
// the given channel. Only presence is checked; type and range validation
// is left to the upstream provider.
func (p PaymentIntent) Validate(channel Channel) error {
	switch channel {
	case ChannelMobileMoney:
		if p.PhoneNumber == "" || p.Amount <= 0 {
			return NewValidationError("phoneNumber and amount are required")
		}
	default:
		if p.Email == "" || p.Amount <= 0 {
			return NewValidationError("email and amount are required")
		}
	}
	return nil
}

// VerificationRecord is the memoized outcome of a verify call, keyed by the
// transaction reference (card) or checkout request id (mobile money).
type VerificationRecord struct {
	Reference  string                 `json:"reference"`
	Success    bool                   `json:"success"`
	Status     string                 `json:"status"`
	Channel    Channel                `json:"channel"`
	Raw        json.RawMessage        `json:"raw,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	VerifiedAt time.Time              `json:"verifiedAt"`
}

// MinorUnits converts a major-unit amount to the minor units card providers
// bill in (kobo, cents). An amount of 10 becomes 1000.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
