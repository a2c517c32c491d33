package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Conservative interactive-login settings; raise
// memory before time cost when tuning.
const (
	argonMemoryKB    uint32 = 64 * 1024
	argonTime        uint32 = 1
	argonParallelism uint8  = 4
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
)

// ErrPasswordMismatch is returned when a password does not match the
// stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword derives an argon2id hash in PHC string format. The
// parameters are embedded so they can change without invalidating
// stored hashes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKB, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKB, argonTime, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword compares a password against a PHC-format argon2id
// hash in constant time.
func VerifyPassword(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return errors.New("invalid password hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return errors.New("invalid password hash version")
	}
	if version != argon2.Version {
		return errors.New("unsupported argon2 version")
	}

	var memory, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return errors.New("invalid password hash parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return errors.New("invalid password hash salt")
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return errors.New("invalid password hash key")
	}

	key := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(expected)))
	if subtle.ConstantTimeCompare(key, expected) != 1 {
		return ErrPasswordMismatch
	}

	return nil
}
