package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CallbackEnvelope is the body Daraja posts to the STK callback URL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback is the asynchronous result of an STK prompt.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// Succeeded reports whether the payer completed the prompt. Any nonzero
// result code (cancelled, timed out, insufficient funds) counts as failed.
func (c STKCallback) Succeeded() bool {
	return c.ResultCode == 0
}

// CallbackMetadata carries the receipt items of a successful prompt.
// Failed prompts omit it entirely.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is a single name/value pair in the callback metadata.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// DecodeCallback parses the body Daraja posts after the payer answers
// the prompt.
func DecodeCallback(body []byte) (*STKCallback, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode stk callback: %w", err)
	}
	if envelope.Body.STKCallback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk callback missing CheckoutRequestID")
	}
	return &envelope.Body.STKCallback, nil
}

// Amount returns the Amount metadata item of a successful callback.
func (c STKCallback) Amount() (float64, bool) {
	value, ok := c.item("Amount")
	if !ok {
		return 0, false
	}
	amount, ok := value.(float64)
	return amount, ok
}

// ReceiptNumber returns the MpesaReceiptNumber metadata item.
func (c STKCallback) ReceiptNumber() (string, bool) {
	value, ok := c.item("MpesaReceiptNumber")
	if !ok {
		return "", false
	}
	receipt, ok := value.(string)
	return receipt, ok
}

// PhoneNumber returns the PhoneNumber metadata item. Daraja sends it as a
// JSON number, so it is formatted back into digits.
func (c STKCallback) PhoneNumber() (string, bool) {
	value, ok := c.item("PhoneNumber")
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// item looks up a metadata item by name.
func (c STKCallback) item(name string) (interface{}, bool) {
	if c.CallbackMetadata == nil {
		return nil, false
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name == name {
			return item.Value, true
		}
	}
	return nil, false
}
