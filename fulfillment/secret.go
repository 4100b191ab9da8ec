package fulfillment

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/eluv-io/errors-go"
)

// SecretHasher is the one-way transform used to verify the collection
// secret without ever storing it in cleartext.
type SecretHasher interface {
	Hash(secret string) string
}

type sha256Hasher struct{}

// NewSecretHasher returns the default SHA-256 hasher. The digest is only
// ever compared for equality against a stored digest.
func NewSecretHasher() SecretHasher {
	return sha256Hasher{}
}

func (sha256Hasher) Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// newCollectionSecret draws a 6-digit numeric secret uniformly from
// 100000-999999.
func newCollectionSecret() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.E("generate collection secret", errors.K.IO, err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
