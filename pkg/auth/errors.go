package auth

import "errors"

// Expected verification failures. These are frequent outcomes, not
// exceptional states, so they surface as error kinds callers branch on
// with errors.Is. All of them carry 401 semantics at the HTTP layer.
var (
	// ErrMalformedToken means the token is not a well-formed
	// three-part compact credential or its payload is not valid
	// structured data.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature means the signature does not match the
	// header and payload under the configured key.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired means the token's exp is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrWrongTokenPurpose means a token of one purpose was presented
	// where another purpose is required.
	ErrWrongTokenPurpose = errors.New("wrong token purpose")
)
