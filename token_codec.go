package phoneconfirm

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

const signerKeyPrefix = "phoneconfirm.signer:"

// ActivationClaims is the payload carried by a signed activation token
type ActivationClaims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates signed activation tokens.
//
// The signing key is derived from the process secret and the salt, so two
// codecs with different salts never accept each other's tokens.
type TokenCodec struct {
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

// TokenCodecOption customizes a TokenCodec
type TokenCodecOption func(*TokenCodec)

// WithTokenClock injects the clock used for issuance and expiry checks.
func WithTokenClock(clock func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewTokenCodec creates a codec. timeout is the maximum token age.
func NewTokenCodec(secret []byte, salt string, timeout time.Duration, opts ...TokenCodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, goerrors.New("token codec secret is required", goerrors.CategoryBadInput)
	}
	if strings.TrimSpace(salt) == "" {
		return nil, goerrors.New("token codec salt is required", goerrors.CategoryBadInput)
	}
	if timeout <= 0 {
		return nil, goerrors.New("token codec timeout must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"timeout": timeout.String()})
	}

	c := &TokenCodec{
		key:     deriveSigningKey(secret, salt),
		timeout: timeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// NewTokenCodecFromConfig builds a codec from SecretKey, Salt and ActivationTimeout.
func NewTokenCodecFromConfig(cfg Config, opts ...TokenCodecOption) (*TokenCodec, error) {
	return NewTokenCodec([]byte(cfg.SecretKey), cfg.Salt, cfg.ActivationTTL(), opts...)
}

// Issue signs {phone_number} together with the current time. The sub claim
// carries PhoneSubject(phoneNumber).
func (c *TokenCodec) Issue(phoneNumber string) (string, error) {
	claims := &ActivationClaims{
		PhoneNumber: phoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  PhoneSubject(phoneNumber),
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign activation token")
	}

	return signed, nil
}

// Validate returns the phone number carried by token.
//
// Failures are ErrTokenMalformed or ErrTokenExpired wrapped with their cause.
// Validate never panics on arbitrary input.
func (c *TokenCodec) Validate(token string) (phoneNumber string, err error) {
	defer func() {
		if r := recover(); r != nil {
			phoneNumber = ""
			err = fmt.Errorf("%w: %v", ErrTokenMalformed, r)
		}
	}()

	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &ActivationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*ActivationClaims)
	if !ok || !parsed.Valid {
		return "", ErrTokenMalformed
	}

	if claims.IssuedAt == nil {
		return "", fmt.Errorf("%w: missing issued at", ErrTokenMalformed)
	}

	if strings.TrimSpace(claims.PhoneNumber) == "" {
		return "", fmt.Errorf("%w: missing phone number", ErrTokenMalformed)
	}

	age := c.now().Sub(claims.IssuedAt.Time)
	if age > c.timeout {
		return "", fmt.Errorf("%w: age %s exceeds %s", ErrTokenExpired, age.Truncate(time.Second), c.timeout)
	}

	return claims.PhoneNumber, nil
}

// PhoneSubject returns a stable uuid for a normalized phone number, or an
// empty string if one cannot be derived.
func PhoneSubject(phoneNumber string) string {
	if strings.TrimSpace(phoneNumber) == "" {
		return ""
	}
	id, err := hashid.NewUUID(phoneNumber)
	if err != nil {
		return ""
	}
	return id.String()
}

func deriveSigningKey(secret []byte, salt string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signerKeyPrefix + salt))
	return mac.Sum(nil)
}
