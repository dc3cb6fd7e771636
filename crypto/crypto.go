package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// sealerSalt is fixed so that a restart with the same secret can still open
// stored rows.
var sealerSalt = []byte("goodhabits/tab-sealer/v1")

func DeriveKey(password string, salt []byte) []byte {
	// Argon2id parameters: 1 pass, 64MB memory, 4 threads, 32 bytes key
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

func Encrypt(text string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(text), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func Decrypt(cryptoText string, key []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Sealer encrypts tab titles and URLs before they reach the database.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from the server secret.
func NewSealer(secret string) *Sealer {
	return &Sealer{key: DeriveKey(secret, sealerSalt)}
}

func (s *Sealer) Seal(plain string) (string, error) {
	return Encrypt(plain, s.key)
}

func (s *Sealer) Open(sealed string) (string, error) {
	return Decrypt(sealed, s.key)
}
