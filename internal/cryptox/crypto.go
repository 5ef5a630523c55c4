// Package cryptox derives the at-rest form of invitation tokens.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// TokenDigest returns the hex blake2b-256 digest of an invitation token.
// Only the digest is persisted; a leaked table does not expose live links.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
