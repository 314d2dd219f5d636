package checkout

import "errors"

var (
	ErrMissingRequiredFields = errors.New("name, phone and address are required")
	ErrIllegalTransition     = errors.New("illegal transition of checkout state")
	ErrStaleAttempt          = errors.New("checkout attempt is no longer current")
	ErrNoPaymentBridge       = errors.New("payment checkout is not configured")

	errEmptyOrderResponse = errors.New("order endpoint returned no result")
)
