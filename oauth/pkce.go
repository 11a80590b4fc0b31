package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// randomByteLen is the entropy behind the PKCE verifier and the anti-forgery
// state. 32 bytes encode to a 43-character string, the RFC 7636 minimum
// verifier length.
const randomByteLen = 32

// newPKCE generates a code verifier and derives its S256 challenge.
func newPKCE() (verifier, challenge string, err error) {
	const op = "oauth.newPKCE"
	b, err := uuid.GenerateRandomBytes(randomByteLen)
	if err != nil {
		return "", "", fmt.Errorf("%s: unable to generate verifier: %w", op, err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

// newState generates the anti-forgery state value.
func newState() (string, error) {
	const op = "oauth.newState"
	b, err := uuid.GenerateRandomBytes(randomByteLen)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newPassword generates the unusable password placeholder for OAuth-only
// accounts.
func newPassword() (string, error) {
	const op = "oauth.newPassword"
	p, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate password: %w", op, err)
	}
	return p, nil
}
