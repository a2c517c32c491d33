package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is the access token lifetime when none is configured
	DefaultAccessTTL = time.Hour
	// DefaultRefreshTTL is the refresh token lifetime when none is configured
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// passwordResetTTL is fixed regardless of configured TTLs
	passwordResetTTL = time.Hour
	// DefaultNearExpiryThreshold is the window before exp in which a
	// token is considered near expiry
	DefaultNearExpiryThreshold = 5 * time.Minute
)

// IssuerConfig holds token issuance settings. Secret and Algorithm are
// fixed at construction; tokens signed under one pair never verify
// under another.
type IssuerConfig struct {
	Secret     []byte
	Algorithm  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer builds, signs and verifies purpose-typed tokens
type Issuer struct {
	codec *Codec
	cfg   IssuerConfig
	now   func() time.Time
}

// NewIssuer creates an issuer. It fails on a misconfigured signing
// secret or algorithm so a bad deployment never accepts traffic.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	codec, err := NewCodec(cfg.Secret, cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	return &Issuer{codec: codec, cfg: cfg, now: time.Now}, nil
}

// IssueAccessToken creates an access token for the user identity
func (i *Issuer) IssueAccessToken(userID, email, role string, permissions []string) (string, error) {
	now := i.now()
	return i.codec.Sign(&Claims{
		Purpose:     PurposeAccess,
		Email:       email,
		Role:        role,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	})
}

// IssueRefreshToken creates a refresh token with a fresh unique token
// id so individual refresh tokens are distinguishable.
func (i *Issuer) IssueRefreshToken(userID string) (string, error) {
	now := i.now()
	return i.codec.Sign(&Claims{
		Purpose: PurposeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL)),
		},
	})
}

// IssuePasswordResetToken creates a reset token. Its lifetime is fixed
// at one hour regardless of configured TTLs.
func (i *Issuer) IssuePasswordResetToken(userID, email string) (string, error) {
	now := i.now()
	return i.codec.Sign(&Claims{
		Purpose: PurposePasswordReset,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(passwordResetTTL)),
		},
	})
}

// TokenPair is the login/refresh response body
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

// IssueTokenPair creates a matched access and refresh token for the
// user identity.
func (i *Issuer) IssueTokenPair(userID, email, role string, permissions []string) (*TokenPair, error) {
	access, err := i.IssueAccessToken(userID, email, role, permissions)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := i.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.cfg.AccessTTL.Seconds()),
		ExpiresAt:    i.now().Add(i.cfg.AccessTTL).Unix(),
	}, nil
}

// VerifyAndDecode verifies a token's signature, expiry and purpose and
// returns its claims. Expiry is checked before purpose so an expired
// token of the wrong kind reports expiry.
func (i *Issuer) VerifyAndDecode(tokenStr string, expected Purpose) (*Claims, error) {
	claims, err := i.codec.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(i.now()) {
		return nil, ErrTokenExpired
	}
	if claims.Purpose != expected {
		return nil, fmt.Errorf("%w: have %q, need %q", ErrWrongTokenPurpose, claims.Purpose, expected)
	}

	return claims, nil
}

// IsNearExpiry reports whether the token expires within the threshold.
// Invalid tokens are treated as expired. A zero threshold uses the
// default of five minutes.
func (i *Issuer) IsNearExpiry(tokenStr string, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultNearExpiryThreshold
	}

	claims, err := i.codec.Verify(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Time.Sub(i.now()) < threshold
}
