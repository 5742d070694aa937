package razorpay

// Provider-native wire shapes, decoded only at this boundary.

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderObject struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type refundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundObject struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type paymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Notes            map[string]string `json:"notes,omitempty"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// RazorpayEvent is the provider-native webhook envelope
type RazorpayEvent struct {
	Event     string        `json:"event"`
	AccountID string        `json:"account_id"`
	CreatedAt int64         `json:"created_at"`
	Payload   eventPayload  `json:"payload"`
}

type eventPayload struct {
	Payment *entityWrapper[paymentEntity] `json:"payment,omitempty"`
	Refund  *entityWrapper[refundEntity]  `json:"refund,omitempty"`
}

type entityWrapper[T any] struct {
	Entity T `json:"entity"`
}

// Provider event type strings
const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventRefundProcessed = "refund.processed"
)
