package tapo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"

	"codeberg.org/helvik/tapowatt/internal/errors"
)

// sessionCipher encrypts passthrough payloads with the AES-128-CBC key
// negotiated during the handshake. The device reuses the handshake IV for
// every message of the session.
type sessionCipher struct {
	block cipher.Block
	iv    []byte
}

func newSessionCipher(key, iv []byte) (*sessionCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(ErrHandshakeFailed, err)
	}

	return &sessionCipher{block: block, iv: iv}, nil
}

// Encrypt pads and encrypts plaintext, returning it base64 encoded
func (c *sessionCipher) Encrypt(plain []byte) string {
	padded := pkcs7Pad(plain, c.block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt
func (c *sessionCipher) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(ErrDecodeFailed, err)
	}

	if len(raw) == 0 || len(raw)%c.block.BlockSize() != 0 {
		return nil, errors.WithData(ErrDecodeFailed, "ciphertext is not block aligned")
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plain, raw)

	return pkcs7Unpad(plain, c.block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize

	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.WithData(ErrDecodeFailed, "empty plaintext")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.WithData(ErrDecodeFailed, "invalid padding")
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.WithData(ErrDecodeFailed, "invalid padding")
		}
	}

	return data[:len(data)-padding], nil
}
