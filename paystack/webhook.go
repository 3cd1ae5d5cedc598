package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SignatureHeader is the header Paystack sets to the hex HMAC-SHA512 digest
// of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// EventType is the closed set of webhook events the gateway understands.
// Every delivery decodes to exactly one of these; names outside the set map
// to EventUnknown with the raw name preserved on the Event.
type EventType string

const (
	EventChargeSuccess   EventType = "charge.success"
	EventTransferSuccess EventType = "transfer.success"
	EventTransferFailed  EventType = "transfer.failed"
	EventUnknown         EventType = "unknown"
)

// Event is a webhook delivery decoded once at the boundary. Data stays raw;
// the typed accessors decode it per event type.
type Event struct {
	Type EventType
	Name string
	Data json.RawMessage
}

// VerifySignature reports whether signature matches the hex HMAC-SHA512
// digest of body under secret. The comparison is constant-time.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// envelopeSchema is the shape every Paystack webhook delivery must have
// before event decoding is attempted.
var envelopeSchema = []byte(`{
	"type": "object",
	"required": ["event", "data"],
	"properties": {
		"event": {"type": "string"},
		"data": {"type": "object"}
	}
}`)

// DecodeEvent validates the envelope against the webhook schema and decodes
// the event name into the closed EventType set.
func DecodeEvent(body []byte) (*Event, error) {
	schemaLoader := gojsonschema.NewBytesLoader(envelopeSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate webhook envelope: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid webhook envelope: %s", result.Errors()[0].String())
	}

	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode webhook envelope: %w", err)
	}

	event := &Event{Name: envelope.Event, Data: envelope.Data}
	switch envelope.Event {
	case string(EventChargeSuccess):
		event.Type = EventChargeSuccess
	case string(EventTransferSuccess):
		event.Type = EventTransferSuccess
	case string(EventTransferFailed):
		event.Type = EventTransferFailed
	default:
		event.Type = EventUnknown
	}

	return event, nil
}

// ChargeData is the data block of a charge.success event.
type ChargeData struct {
	Reference       string   `json:"reference"`
	Amount          int64    `json:"amount"`
	Currency        string   `json:"currency"`
	Status          string   `json:"status"`
	Channel         string   `json:"channel"`
	PaidAt          string   `json:"paid_at"`
	GatewayResponse string   `json:"gateway_response"`
	Customer        Customer `json:"customer"`
}

// Charge decodes the event payload as a charge. Only meaningful for
// EventChargeSuccess deliveries.
func (e *Event) Charge() (*ChargeData, error) {
	var data ChargeData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode charge data: %w", err)
	}
	return &data, nil
}

// TransferData is the data block of a transfer.success or transfer.failed
// event.
type TransferData struct {
	Reference    string `json:"reference"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
	Reason       string `json:"reason"`
}

// Transfer decodes the event payload as a transfer. Only meaningful for
// the transfer event types.
func (e *Event) Transfer() (*TransferData, error) {
	var data TransferData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode transfer data: %w", err)
	}
	return &data, nil
}
