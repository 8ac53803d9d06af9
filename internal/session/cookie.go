package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const cookieKeyInfo = "netdash session cookie v1"

// Codec signs session IDs for the session cookie. The cookie value is
// "<id>.<signature>".
type Codec struct {
	key []byte
}

// NewCodec derives the signing key from secret. An empty secret yields a
// random key, so cookies do not survive a restart.
func NewCodec(secret string) (*Codec, error) {
	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, 32)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Codec{key: key}, nil
}

// Encode returns the cookie value for id
func (c *Codec) Encode(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(c.sign(id))
}

// Decode verifies value and returns the session ID it carries
func (c *Codec) Decode(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	id, sig := value[:i], value[i+1:]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, c.sign(id)) {
		return "", false
	}
	return id, true
}

func (c *Codec) sign(id string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(id))
	return mac.Sum(nil)
}
