// Package http provides the HTTP surface of the payment gateway: the gin
// router, its handlers, and the Accept-header dispatch between JSON
// responses and app-scheme redirects.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	paygate "github.com/dfirstlabs/paygate"
	"github.com/dfirstlabs/paygate/mpesa"
	"github.com/dfirstlabs/paygate/paystack"
)

// PaystackClient is the slice of the Paystack API the handlers use.
type PaystackClient interface {
	Initialize(ctx context.Context, initReq *paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
}

// MpesaClient is the slice of the Daraja API the handlers use.
type MpesaClient interface {
	STKPush(ctx context.Context, input *mpesa.STKPushInput) (*mpesa.STKPushResponse, error)
	STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// ServerConfig configures the gateway server.
type ServerConfig struct {
	// Paystack serves the card flows (required)
	Paystack PaystackClient

	// Mpesa serves the mobile-money flows (optional; the M-Pesa endpoints
	// are mounted only when non-nil)
	Mpesa MpesaClient

	// Store caches verification results (optional, defaults to an
	// in-memory store with the default TTL)
	Store paygate.VerificationStore

	// WebhookSecret validates Paystack webhook signatures
	WebhookSecret string

	// AppScheme is the custom URL scheme verify redirects target
	// (optional, defaults to "dfirsttrader")
	AppScheme string

	// Environment shows up in the health response
	Environment string

	// UpstreamTimeout bounds each provider call (optional, defaults to 30s)
	UpstreamTimeout time.Duration
}

// Server is the gateway's HTTP surface.
type Server struct {
	config ServerConfig
	engine *gin.Engine
}

// NewServer assembles the gin engine and mounts the routes. The M-Pesa
// routes exist only when an M-Pesa client was configured.
func NewServer(config ServerConfig) *Server {
	if config.Store == nil {
		config.Store = paygate.NewInMemoryVerificationStore(paygate.DefaultVerificationTTL)
	}
	if config.AppScheme == "" {
		config.AppScheme = "dfirsttrader"
	}
	if config.UpstreamTimeout == 0 {
		config.UpstreamTimeout = 30 * time.Second
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config: config,
		engine: engine,
	}

	engine.GET("/", s.handleHealth)
	engine.POST("/payment/initialize", s.handleInitialize)
	engine.GET("/payment/verify", s.handleVerify)
	engine.GET("/payment/verify/:reference", s.handleVerify)
	engine.POST("/webhook", s.handlePaystackWebhook)

	if config.Mpesa != nil {
		engine.POST("/payment/mpesa/initiate", s.handleMpesaInitiate)
		engine.GET("/payment/mpesa/verify/:checkoutRequestId", s.handleMpesaVerify)
		engine.POST("/mpesa/callback", s.handleMpesaCallback)
		engine.POST("/mpesa/webhook", s.handleMpesaValidation)
	}

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
