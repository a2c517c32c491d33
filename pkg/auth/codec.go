package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted signing secret length in
// bytes. Anything shorter is a startup misconfiguration.
const MinSecretLength = 32

// Codec performs tamper-evident serialization of claims into compact
// header.payload.signature tokens. It is a pure function of (claims,
// key) and (token, key): no expiry or purpose checks happen here, the
// Issuer owns those.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

// NewCodec creates a codec for the given secret and algorithm
// identifier. Only HMAC algorithms are supported; verification
// rejects any token whose header names a different algorithm.
func NewCodec(secret []byte, algorithm string) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}

	var method jwt.SigningMethod
	switch strings.ToUpper(algorithm) {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &Codec{secret: secret, method: method}, nil
}

// Sign serializes the claims and appends a keyed signature. The output
// is deterministic for identical claims and key.
func (c *Codec) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the structure and signature of a token and returns its
// decoded claims. Expiry is not enforced here; the jwt
// library compares HMAC signatures in constant time.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrMalformedToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
