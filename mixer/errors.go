package mixer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrInvalidConfig is returned when a Mixer is created with round
	// parameters it cannot work with.
	ErrInvalidConfig = errors.New("invalid mixer config")

	// ErrNoAmounts is returned when a participant registers nothing.
	ErrNoAmounts = errors.New("participant has no amounts")

	// ErrNegativeAmount is returned for a negative input amount.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrInvariantViolated is the root of every fund conservation
	// failure. It signals a defect in the decomposition, never bad input,
	// and the round must be aborted.
	ErrInvariantViolated = errors.New("decomposition invariant violated")

	// ErrMoneyCreated means the outputs cost more than the inputs hold.
	ErrMoneyCreated = errors.New("decomposer is creating money")

	// ErrMoneyLost means more than one output's worth of value was left
	// unallocated.
	ErrMoneyLost = errors.New("decomposer is losing money")

	// ErrVSizeExceeded means the outputs do not fit the participant's
	// vsize budget.
	ErrVSizeExceeded = errors.New("decomposer created more outputs than " +
		"it can pay for")

	// ErrLeftoverTooLarge means the forfeited remainder exceeds what a
	// change output could have saved.
	ErrLeftoverTooLarge = errors.New("leftover too large")
)

// InvariantError describes a decomposition that failed a fund conservation
// check. It matches both ErrInvariantViolated and its Kind with errors.Is.
type InvariantError struct {
	// Kind is the violated check.
	Kind error

	// InputSum is the participant's total effective input value.
	InputSum btcutil.Amount

	// OutputCost is the total effective cost of the chosen outputs.
	OutputCost btcutil.Amount

	// Detail describes the offending quantity.
	Detail string
}

// Error satisfies the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: %v (inputs %v, outputs %v): %s",
		ErrInvariantViolated, e.Kind, e.InputSum, e.OutputCost, e.Detail)
}

// Unwrap returns both the sentinel and the kind of the violation.
func (e *InvariantError) Unwrap() []error {
	return []error{ErrInvariantViolated, e.Kind}
}
