package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// Codec produces and verifies the signature that proves a
// (mediaID, exp) pair was issued by this process and has not been
// altered. The signature is HMAC-SHA256 over "{mediaID}.{exp}",
// base64 URL-encoded without padding.
//
// The codec is deliberately stateless: verification recomputes the
// signature instead of decoding anything, so a stream link needs no
// server-side session. Expiry is checked by the caller, not here.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec using the given signing key. The key is
// fixed for the process lifetime; rotating it invalidates every
// outstanding stream link.
func NewCodec(secret string) *Codec {
	if secret == "" {
		panic("stream token secret cannot be empty") // Critical configuration
	}
	return &Codec{secret: []byte(secret)}
}

// Sign returns the signature for the given media ID and unix expiry.
// Deterministic: same inputs and key always produce the same output.
func (c *Codec) Sign(mediaID string, exp int64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(mediaID))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the signature this codec would produce
// for (mediaID, exp). Comparison is constant time. A structurally
// malformed signature returns false rather than an error.
func (c *Codec) Verify(mediaID string, exp int64, sig string) bool {
	expected := c.Sign(mediaID, exp)
	return hmac.Equal([]byte(sig), []byte(expected))
}
