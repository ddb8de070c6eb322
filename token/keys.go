package token

import (
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const derivedKeyLength = 32 // 256 bits, A256GCM and HMAC-SHA256

// Key derivation labels. Changing either invalidates every outstanding token
// of that kind.
const (
	codeSigningInfo     = "fhhvr authorization code signing key"
	tokenEncryptionInfo = "fhhvr token encryption key"
)

// deriveKey expands the server secret into an independent 256-bit key for the
// given usage label. HKDF keeps the signing and encryption keys unrelated even
// though they share one configured secret.
func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, derivedKeyLength)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Wrap(err, "[deriveKey] hkdf read")
	}
	return key, nil
}
