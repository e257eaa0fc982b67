package ledger

import "errors"

var (
	// ErrNotFound is returned by read-only operations when no account
	// record exists for the user. Account creation is explicit via
	// BootstrapAccount, never implicit.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientCredits is returned when a reservation is declined.
	// The balance is not mutated.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when a mutation is requested with a
	// non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrMissingEventID is returned when a grant carries no payment
	// event identifier to de-duplicate on.
	ErrMissingEventID = errors.New("payment event id is required")
)
