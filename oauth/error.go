package oauth

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilParameter         = errors.New("nil parameter")
	ErrInvalidCACert        = errors.New("invalid CA certificate")
	ErrNotFound             = errors.New("not found")
	ErrUnknownStrategy      = errors.New("unknown strategy")
	ErrMissingState         = errors.New("missing transient state")
	ErrRegistrationDisabled = errors.New("registration disabled")
	ErrNoUserinfoEndpoint   = errors.New("no userinfo endpoint")
	ErrMissingSubject       = errors.New("profile subject is missing")
	ErrStateMismatch        = errors.New("authorization state mismatch")
	ErrExchangeFailed       = errors.New("code exchange failed")
)

// Reason is the machine-readable annotation appended to the failure redirect
// as the error query parameter.
type Reason string

const (
	ReasonMissingState         Reason = "missing_state"
	ReasonRegistrationDisabled Reason = "registration_disabled"
	ReasonCallbackFailed       Reason = "callback_failed"
)

// reasonFor classifies a callback failure. Policy rejections keep their
// specific reason; everything else collapses to callback_failed.
func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrMissingState):
		return ReasonMissingState
	case errors.Is(err, ErrRegistrationDisabled):
		return ReasonRegistrationDisabled
	default:
		return ReasonCallbackFailed
	}
}
