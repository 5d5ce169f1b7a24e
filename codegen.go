package phoneconfirm

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const opaqueTokenSize = 32

// GenerateCode returns a random numeric code of exactly length digits.
// Leading zeros are allowed.
func GenerateCode(length int) (string, error) {
	if length < 1 {
		return "", goerrors.New("code length must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"length": length})
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random digit")
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// GenerateOpaqueToken returns a URL safe string carrying 256 bits of entropy.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
