// Package auth resolves bearer credentials to principals. Token
// issuance and verification use JWTs; resolution is a pure
// lookup-and-verify with no side effects.
package auth

import "errors"

// ErrInvalidToken indicates a credential that is missing, malformed,
// expired or signed with the wrong key.
var ErrInvalidToken = errors.New("auth: invalid token")
