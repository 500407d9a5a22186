package channels

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	secureTokenLength = 24
	base58Alphabet    = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// NewSecureToken returns a random 24-character base58 token suitable for
// website_token and hmac_token.
func NewSecureToken() (string, error) {
	max := big.NewInt(int64(len(base58Alphabet)))
	b := make([]byte, secureTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("channels: secure token: %w", err)
		}
		b[i] = base58Alphabet[n.Int64()]
	}
	return string(b), nil
}
