// Package cryptox implements the hashing and symmetric encryption used to
// protect evidence files at rest.
//
// Files are encrypted with AES-256 in CBC mode with PKCS#7 padding. Every call
// to EncryptCBC draws a fresh random IV which the caller stores next to the
// ciphertext locator. Digests are always computed over the plaintext.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/dmitrijs2005/evidencevault/internal/common"
)

// KeySize is the only accepted key length (AES-256).
const KeySize = 32

// Digest returns the lower-case hex SHA-256 and MD5 digests of data.
func Digest(data []byte) (sha256Hex, md5Hex string) {
	s := sha256.Sum256(data)
	m := md5.Sum(data)
	return hex.EncodeToString(s[:]), hex.EncodeToString(m[:])
}

// ParseKey decodes a base64 encoded AES-256 key.
//
// It fails unless the decoded key is exactly KeySize bytes long. The server
// calls it once at startup and refuses to start on error.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, common.Wrap(common.ErrCrypto, err, "encryption key is not valid base64")
	}
	if len(key) != KeySize {
		return nil, common.Errorf(common.ErrCrypto, "encryption key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// KeyFingerprint returns a short hex fingerprint of key that can be logged to
// identify which key is loaded without revealing it.
func KeyFingerprint(key []byte) string {
	hash := sha256.Sum256(key)
	return hex.EncodeToString(hash[:8])
}

// EncryptCBC encrypts plaintext with AES-256-CBC and PKCS#7 padding.
//
// A new random IV of aes.BlockSize bytes is generated for each call and
// returned alongside the ciphertext. It must be stored to decrypt later and
// is never reused.
//
// Example:
//
//	ciphertext, iv, err := EncryptCBC([]byte("hello"), key)
//	if err != nil {
//	    return err
//	}
//	plaintext, err := DecryptCBC(ciphertext, key, iv)
func EncryptCBC(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, nil, err
	}

	iv = common.GenerateRandByteArray(aes.BlockSize)

	padded := pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// DecryptCBC reverses EncryptCBC.
//
// It returns an error of kind common.ErrCrypto when the key or IV has the
// wrong length, the ciphertext is not a positive multiple of the block size,
// or the PKCS#7 padding does not validate. A padding failure means the file
// was corrupted or decrypted with the wrong key or IV.
func DecryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, common.Errorf(common.ErrCrypto, "iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, common.Errorf(common.ErrCrypto, "ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, aes.BlockSize)
}

// EncodeIV returns the base64 form of iv stored in the ledger.
func EncodeIV(iv []byte) string {
	return base64.StdEncoding.EncodeToString(iv)
}

// DecodeIV parses an IV previously produced by EncodeIV.
func DecodeIV(encoded string) ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, common.Wrap(common.ErrCrypto, err, "iv is not valid base64")
	}
	return iv, nil
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, common.Errorf(common.ErrCrypto, "key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.Wrap(common.ErrCrypto, err, "cannot create cipher")
	}
	return block, nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, common.Errorf(common.ErrCrypto, "invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, common.Errorf(common.ErrCrypto, "invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
