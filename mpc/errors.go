package mpc

import (
	"errors"
	"fmt"

	"mpc-drive-core/nlp"
)

// ErrInvalidInput marks caller or configuration bugs caught before any
// solver work: wrong state length, oversized polynomial, bad tuning values.
var ErrInvalidInput = errors.New("mpc: invalid input")

// SolveError reports a solver run that ended without a usable solution.
// The caller owns the fallback policy (hold the last command, command a
// stop); the controller never invents one.
type SolveError struct {
	Status nlp.Status
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("mpc: solve failed: %s", e.Status)
}
