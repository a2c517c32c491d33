// Package auth implements signed session tokens for the Vantage CRM
// backend.
//
// Tokens are compact three-part HS256 credentials carrying an explicit
// purpose claim: access tokens authorize API calls, refresh tokens
// mint new pairs, and password-reset tokens authorize a single
// credential change. A token of one purpose never validates for
// another.
//
// The Codec handles serialization and signature verification only;
// expiry and purpose enforcement live in the Issuer so callers get a
// precise error kind (expired, bad signature, malformed, wrong
// purpose) for each expected failure. Verification is stateless: no
// server-side session record is consulted, which keeps the service
// horizontally scalable at the cost of server-enforced revocation.
package auth
