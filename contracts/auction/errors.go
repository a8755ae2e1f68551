package auction

import (
	"go.dedis.ch/sealbid/core/seal"
	"golang.org/x/xerrors"
)

// The kinds of errors returned when a request is refused. They are wrapped
// with a message describing the request and can be tested with xerrors.Is.
// A refused request never modifies the ledger.
var (
	// ErrValidation is returned when a request is malformed.
	ErrValidation = xerrors.New("validation error")

	// ErrNotFound is returned when the auction does not exist.
	ErrNotFound = xerrors.New("not found")

	// ErrInvalidState is returned when the auction does not accept the
	// operation anymore.
	ErrInvalidState = xerrors.New("invalid state")

	// ErrPolicyViolation is returned when the request breaks a rule of the
	// auction.
	ErrPolicyViolation = xerrors.New("policy violation")
)

// Kind returns a short name for the kind of the error, or an empty string if
// the error is not a refusal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case xerrors.Is(err, ErrValidation):
		return "validation"
	case xerrors.Is(err, ErrNotFound):
		return "not_found"
	case xerrors.Is(err, ErrInvalidState):
		return "invalid_state"
	case xerrors.Is(err, ErrPolicyViolation):
		return "policy"
	case xerrors.Is(err, seal.ErrAccessDenied):
		return "access_denied"
	default:
		return ""
	}
}
