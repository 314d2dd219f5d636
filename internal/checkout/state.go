package checkout

type State string

const (
	StateBrowsing       State = "BROWSING"
	StateCartOpen       State = "CART_OPEN"
	StateCheckoutOpen   State = "CHECKOUT_OPEN"
	StateSubmitting     State = "SUBMITTING"
	StateSuccess        State = "SUCCESS"
	StateFailed         State = "FAILED"
	StatePaymentPending State = "PAYMENT_PENDING"
	StatePaymentOpen    State = "PAYMENT_OPEN"
)

var transitions = map[State][]State{
	StateBrowsing:       {StateCartOpen},
	StateCartOpen:       {StateBrowsing, StateCheckoutOpen},
	StateCheckoutOpen:   {StateBrowsing, StateSubmitting, StatePaymentPending},
	StateFailed:         {StateBrowsing, StateCheckoutOpen, StateSubmitting, StatePaymentPending},
	StateSubmitting:     {StateSuccess, StateFailed, StateBrowsing},
	StatePaymentPending: {StatePaymentOpen, StateFailed, StateBrowsing},
	StatePaymentOpen:    {StateCheckoutOpen, StateBrowsing},
	StateSuccess:        {StateBrowsing},
}

func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CheckoutVisible reports whether the checkout form is on screen.
func (s State) CheckoutVisible() bool {
	switch s {
	case StateCheckoutOpen, StateFailed, StateSubmitting, StatePaymentPending, StatePaymentOpen:
		return true
	}
	return false
}

// InFlight reports whether a submission is waiting on the backend.
func (s State) InFlight() bool {
	return s == StateSubmitting || s == StatePaymentPending
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
