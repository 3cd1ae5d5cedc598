package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paygate "github.com/dfirstlabs/paygate"
	"github.com/dfirstlabs/paygate/mpesa"
	"github.com/dfirstlabs/paygate/paystack"
)

// handleHealth reports liveness plus deployment info.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"message":     "paygate is running",
		"environment": s.config.Environment,
	})
}

// handleInitialize relays a card initialize to Paystack. Callers send
// amounts in major units; Paystack bills in minor units.
func (s *Server) handleInitialize(c *gin.Context) {
	var intent paygate.PaymentIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  paygate.ErrCodeValidation,
			"error": "Invalid request body",
		})
		return
	}

	if err := intent.Validate(paygate.ChannelCard); err != nil {
		respondError(c, err)
		return
	}

	reference := intent.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.UpstreamTimeout)
	defer cancel()

	response, err := s.config.Paystack.Initialize(ctx, &paystack.InitializeRequest{
		Email:       intent.Email,
		Amount:      paygate.MinorUnits(intent.Amount),
		Currency:    intent.Currency,
		Reference:   reference,
		CallbackURL: intent.CallbackURL,
		Metadata:    buildMetadata(intent.Metadata),
	})
	if err != nil {
		log.Printf("paystack initialize failed for %s: %v", reference, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleVerify checks a card transaction, consulting the store first so
// repeat calls inside the TTL reuse the provider's answer.
func (s *Server) handleVerify(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		reference = c.Query("reference")
	}
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  paygate.ErrCodeValidation,
			"error": "reference is required",
		})
		return
	}

	record, err := s.verify(c.Request.Context(), reference, func(ctx context.Context) (*paygate.VerificationRecord, error) {
		response, err := s.config.Paystack.Verify(ctx, reference)
		if err != nil {
			return nil, err
		}
		raw, _ := json.Marshal(response)
		return &paygate.VerificationRecord{
			Reference:  reference,
			Success:    response.Data.Succeeded(),
			Status:     response.Data.Status,
			Channel:    paygate.ChannelCard,
			Raw:        raw,
			VerifiedAt: time.Now(),
		}, nil
	})
	if err != nil {
		log.Printf("verify failed for %s: %v", reference, err)
		respondError(c, err)
		return
	}

	s.respondVerification(c, record)
}

// mpesaInitiateRequest is the body of POST /payment/mpesa/initiate.
type mpesaInitiateRequest struct {
	PhoneNumber      string  `json:"phoneNumber"`
	Amount           float64 `json:"amount"`
	AccountReference string  `json:"accountReference,omitempty"`
	Description      string  `json:"description,omitempty"`
}

// handleMpesaInitiate relays an STK push. Mobile-money amounts stay
// unscaled.
func (s *Server) handleMpesaInitiate(c *gin.Context) {
	var req mpesaInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  paygate.ErrCodeValidation,
			"error": "Invalid request body",
		})
		return
	}

	intent := paygate.PaymentIntent{PhoneNumber: req.PhoneNumber, Amount: req.Amount}
	if err := intent.Validate(paygate.ChannelMobileMoney); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.UpstreamTimeout)
	defer cancel()

	response, err := s.config.Mpesa.STKPush(ctx, &mpesa.STKPushInput{
		PhoneNumber:      req.PhoneNumber,
		Amount:           int64(req.Amount),
		AccountReference: req.AccountReference,
		Description:      req.Description,
	})
	if err != nil {
		log.Printf("stk push failed for %s: %v", req.PhoneNumber, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleMpesaVerify polls an STK prompt's status, with the same store
// semantics as card verify.
func (s *Server) handleMpesaVerify(c *gin.Context) {
	checkoutRequestID := c.Param("checkoutRequestId")
	if checkoutRequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  paygate.ErrCodeValidation,
			"error": "checkoutRequestId is required",
		})
		return
	}

	record, err := s.verify(c.Request.Context(), checkoutRequestID, func(ctx context.Context) (*paygate.VerificationRecord, error) {
		response, err := s.config.Mpesa.STKQuery(ctx, checkoutRequestID)
		if err != nil {
			return nil, err
		}
		raw, _ := json.Marshal(response)
		return &paygate.VerificationRecord{
			Reference:  checkoutRequestID,
			Success:    response.Paid(),
			Status:     response.ResultCode,
			Channel:    paygate.ChannelMobileMoney,
			Raw:        raw,
			VerifiedAt: time.Now(),
		}, nil
	})
	if err != nil {
		log.Printf("stk query failed for %s: %v", checkoutRequestID, err)
		respondError(c, err)
		return
	}

	s.respondVerification(c, record)
}

// verify runs the store's in-flight protocol around fetch: cached records
// return immediately, concurrent calls for one reference share a single
// upstream fetch, and failures are not cached.
func (s *Server) verify(ctx context.Context, reference string, fetch func(context.Context) (*paygate.VerificationRecord, error)) (*paygate.VerificationRecord, error) {
	status, record, done := s.config.Store.CheckAndMark(reference)

	switch status {
	case paygate.StatusCached:
		return record, nil

	case paygate.StatusInFlight:
		// Wait for the in-flight verify, respecting context cancellation
		record, err := s.config.Store.WaitForResult(ctx, reference, done)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return record, nil
		}
		// In-flight verify failed, retry with a fresh slot
		return s.verify(ctx, reference, fetch)

	case paygate.StatusNotFound:
		// This request owns the in-flight slot, proceed
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()

	record, err := fetch(fetchCtx)
	if err != nil {
		// Don't cache failures - allow retries
		s.config.Store.Fail(reference, done)
		return nil, err
	}

	s.config.Store.Complete(reference, record, done)
	return record, nil
}

// respondVerification returns JSON for API callers and a 302 redirect into
// the mobile app for browser-initiated callbacks.
func (s *Server) respondVerification(c *gin.Context, record *paygate.VerificationRecord) {
	acceptHeader := c.GetHeader("Accept")
	wantsRedirect := strings.Contains(acceptHeader, "text/html")

	if !wantsRedirect {
		c.JSON(http.StatusOK, record)
		return
	}

	values := url.Values{}
	values.Set("reference", record.Reference)
	values.Set("success", strconv.FormatBool(record.Success))
	values.Set("status", record.Status)

	c.Redirect(http.StatusFound, s.config.AppScheme+"://payment/verify?"+values.Encode())
}

// handlePaystackWebhook authenticates the delivery before any processing:
// the raw body is read first, its HMAC checked against the signature
// header, and only then is the event decoded and dispatched.
func (s *Server) handlePaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)
	if !paystack.VerifySignature(body, signature, s.config.WebhookSecret) {
		log.Printf("webhook rejected: signature mismatch")
		c.Status(http.StatusBadRequest)
		return
	}

	event, err := paystack.DecodeEvent(body)
	if err != nil {
		log.Printf("webhook rejected: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case paystack.EventChargeSuccess:
		if charge, err := event.Charge(); err == nil {
			log.Printf("webhook charge.success: reference=%s amount=%d", charge.Reference, charge.Amount)
		}
	case paystack.EventTransferSuccess, paystack.EventTransferFailed:
		if transfer, err := event.Transfer(); err == nil {
			log.Printf("webhook %s: reference=%s status=%s", event.Name, transfer.Reference, transfer.Status)
		}
	default:
		log.Printf("webhook ignored event: %s", event.Name)
	}

	c.Status(http.StatusOK)
}

// handleMpesaCallback records the STK result Daraja pushes after the payer
// answers the prompt. The response is always an acknowledgment; Daraja
// retries deliveries it considers failed.
func (s *Server) handleMpesaCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ackMpesa(c)
		return
	}

	callback, err := mpesa.DecodeCallback(body)
	if err != nil {
		log.Printf("stk callback rejected: %v", err)
		ackMpesa(c)
		return
	}

	metadata := map[string]interface{}{}
	if amount, ok := callback.Amount(); ok {
		metadata["amount"] = amount
	}
	if receipt, ok := callback.ReceiptNumber(); ok {
		metadata["receipt"] = receipt
	}
	if phone, ok := callback.PhoneNumber(); ok {
		metadata["phoneNumber"] = phone
	}

	if callback.Succeeded() {
		log.Printf("stk callback success: checkout=%s receipt=%v", callback.CheckoutRequestID, metadata["receipt"])
	} else {
		log.Printf("stk callback failed: checkout=%s code=%d desc=%s", callback.CheckoutRequestID, callback.ResultCode, callback.ResultDesc)
	}

	// A recorded result makes the later verify a cache hit
	s.config.Store.Put(callback.CheckoutRequestID, &paygate.VerificationRecord{
		Reference:  callback.CheckoutRequestID,
		Success:    callback.Succeeded(),
		Status:     strconv.Itoa(callback.ResultCode),
		Channel:    paygate.ChannelMobileMoney,
		Raw:        body,
		Metadata:   metadata,
		VerifiedAt: time.Now(),
	})

	ackMpesa(c)
}

// handleMpesaValidation acknowledges Daraja's validation probe.
func (s *Server) handleMpesaValidation(c *gin.Context) {
	ackMpesa(c)
}

// ackMpesa responds in the shape Daraja expects for callback endpoints.
func ackMpesa(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// respondError maps a GatewayError onto the flat status taxonomy:
// validation and signature failures are the caller's fault (400),
// everything else surfaces as an upstream failure (500) carrying the
// error message.
func respondError(c *gin.Context, err error) {
	if gwErr, ok := err.(*paygate.GatewayError); ok {
		status := http.StatusInternalServerError
		switch gwErr.Code {
		case paygate.ErrCodeValidation, paygate.ErrCodeSignatureInvalid:
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"code": gwErr.Code, "error": gwErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": paygate.ErrCodeUpstream, "error": err.Error()})
}

// buildMetadata merges caller metadata over the static service block every
// initialize carries.
func buildMetadata(meta map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{
		"source":  "dfirsttrader",
		"service": "paygate",
	}
	for key, value := range meta {
		merged[key] = value
	}
	return merged
}
