package rand

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const digits = "0123456789"

// Bytes returns n cryptographically random bytes.
func Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NumericCode returns a random code of the given length built from digits,
// suitable for pickup/delivery confirmation.
func NumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(digits)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = digits[idx.Int64()]
	}
	return string(out), nil
}

// Token returns a URL-safe random token carrying n bytes of entropy.
func Token(n int) (string, error) {
	buf, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
