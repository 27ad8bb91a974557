// Package cryptoutil encrypts PAN values at rest with AES-GCM, the key
// derived from the configured app secret via argon2id. A SHA-256 digest of
// the uppercased PAN serves as a deterministic handle for uniqueness checks.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// keySalt is fixed: the derived key must be stable across restarts so stored
// ciphertexts stay readable.
var keySalt = []byte("finagg-pan-at-rest")

type Box struct {
	key []byte
}

func NewBox(secret string) *Box {
	return &Box{key: argon2.IDKey([]byte(secret), keySalt, 1, 64*1024, 4, 32)}
}

func (b *Box) Encrypt(plaintext string) ([]byte, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (b *Box) Decrypt(ciphertext []byte) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func HashPAN(pan string) string {
	digest := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(pan))))
	return hex.EncodeToString(digest[:])
}
