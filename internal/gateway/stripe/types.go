package stripe

// Provider-native wire shapes, decoded only at this boundary.

// orderRequest is the create-order payload
type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Customer customerPayload   `json:"customer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type customerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// paymentIntent is the provider's order/payment object
type paymentIntent struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LatestCharge  string            `json:"latest_charge,omitempty"`
	LastPaymentError *paymentError  `json:"last_payment_error,omitempty"`
}

type paymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type refundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

type refundObject struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// StripeEvent is the provider-native webhook envelope
type StripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object paymentIntent `json:"object"`
}

// Provider event type strings
const (
	eventPaymentIntentSucceeded = "payment_intent.succeeded"
	eventPaymentIntentFailed    = "payment_intent.payment_failed"
	eventChargeRefunded         = "charge.refunded"
)
