// Package token issues the bearer credentials embedded in invitation links.
//
// Bearers are 32 bytes of crypto/rand encoded as URL-safe base64 and are
// never persisted, only their sha256 digest is. There is no server secret
// involved, the security of a link rests on the unguessability of the
// bearer, which means Hash must stay deterministic and one-way.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"

	"github.com/soiree/soiree/platform/generate"
)

const bearerBytes = 32

var bearerRe = regexp.MustCompile(`^[A-Za-z0-9_-]{20,256}$`)

// New returns a fresh bearer token together with its lookup hash.
func New() (bearer, hash string, err error) {
	bs, err := generate.RandomBytes(bearerBytes)
	if err != nil {
		return "", "", err
	}

	bearer = base64.RawURLEncoding.EncodeToString(bs)

	return bearer, Hash(bearer), nil
}

// Hash returns the hex encoded sha256 digest used to look up a bearer.
func Hash(bearer string) string {
	sum := sha256.Sum256([]byte(bearer))

	return hex.EncodeToString(sum[:])
}

// IsWellFormed reports if the input has the shape of a bearer token, used to
// reject garbage before hashing.
func IsWellFormed(bearer string) bool {
	return bearerRe.MatchString(bearer)
}
