package domain

// PaymentSession is the payment-gateway order returned by POST /payments/create-order.
// Amount is in minor currency units.
type PaymentSession struct {
	KeyID    string `json:"key_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"order_id"`
}

// PaymentResult is what the payment widget hands to its completion callback.
type PaymentResult struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}
