package crypto

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// sealSymmetric encrypts plaintext under key with a fresh random nonce,
// prefixing the nonce to the ciphertext. Used to encrypt one trustee's DKG
// share for a single recipient (§3.2 "verifiable encryption under each
// recipient's key").
func sealSymmetric(key [32]byte, plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "crypto: generate nonce")
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, &key), nil
}

// openSymmetric reverses sealSymmetric.
func openSymmetric(key [32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, errors.New("crypto: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &key)
	if !ok {
		return nil, errors.New("crypto: secretbox authentication failed")
	}
	return plaintext, nil
}
