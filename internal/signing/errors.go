package signing

import "errors"

// Sentinel errors for the signing workflow. The handler layer maps these to
// HTTP status codes; services return the first failing precondition so
// signer-facing errors stay specific.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not the owner of this request")
	ErrSessionExpired    = errors.New("signing session expired")
	ErrOTPExpired        = errors.New("verification code expired")
	ErrTooManyAttempts   = errors.New("too many verification attempts")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrNotVerified       = errors.New("session not verified")
	ErrAlreadySigned     = errors.New("document already signed for this session")
	ErrInvalidCredential = errors.New("invalid or expired access credential")
	ErrConsentRequired   = errors.New("consent must be accepted")
	ErrValidation        = errors.New("invalid input")
)
