package checkout

// State of the checkout flow.
type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome tells the caller what Initiate did.
type Outcome int

const (
	// OutcomeLoginRequired: signed out; drawer closed, no request sent.
	OutcomeLoginRequired Outcome = iota
	// OutcomeEmptyCart: nothing valid to buy; no request sent.
	OutcomeEmptyCart
	// OutcomeBusy: a submission is already in flight.
	OutcomeBusy
	OutcomeSucceeded
	OutcomeFailed
	// OutcomeAuthRejected: failed because the backend refused the token.
	// The flow is Failed like any other failure; the caller ends the session.
	OutcomeAuthRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoginRequired:
		return "login_required"
	case OutcomeEmptyCart:
		return "empty_cart"
	case OutcomeBusy:
		return "busy"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeAuthRejected:
		return "auth_rejected"
	default:
		return "unknown"
	}
}
