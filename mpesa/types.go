package mpesa

// tokenResponse is the Daraja OAuth envelope. ExpiresIn arrives as a
// string ("3599"), not a number.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushInput is the caller-facing input for an STK-Push prompt.
// Amount is in whole currency units; mobile money is not scaled to minor
// units the way card amounts are.
type STKPushInput struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	Description      string
}

// stkPushPayload is the Daraja wire shape for a processrequest call.
type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is Daraja's acknowledgment that a prompt was queued.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether Daraja queued the prompt for the handset.
func (r STKPushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

// stkQueryPayload is the Daraja wire shape for a stkpushquery call.
type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQueryResponse is the status of a previously initiated prompt.
type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// Paid reports whether the payer completed the prompt successfully.
func (r STKQueryResponse) Paid() bool {
	return r.ResultCode == "0"
}

// errorResponse is Daraja's envelope for a rejected call.
type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
