package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ChunkSize is the number of ciphertext bytes processed per decryption
// step. It is a multiple of the AES block size.
const ChunkSize = 10 * 1000 * 1000

const keyLen = 32

// GenerateContentKey returns a fresh random AES-256 key encoded as
// standard base64, the representation pushed in requester secrets.
func GenerateContentKey() (string, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate content key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// EncryptContent encrypts plaintext with AES-256-CBC under the base64
// encoded key. The returned blob is IV || ciphertext with PKCS#7 padding.
func EncryptContent(plaintext []byte, base64Key string) ([]byte, error) {
	block, err := newBlockCipher(base64Key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate IV: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// DecryptContent decrypts a blob produced by EncryptContent. The first 16
// bytes are the IV, the remainder is ciphertext decrypted in ChunkSize
// steps so memory stays bounded for large messages.
func DecryptContent(encrypted []byte, base64Key string) ([]byte, error) {
	block, err := newBlockCipher(base64Key)
	if err != nil {
		return nil, err
	}

	if len(encrypted) < aes.BlockSize {
		return nil, errors.New("encrypted content too short")
	}

	iv := encrypted[:aes.BlockSize]
	ciphertext := encrypted[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}

	// CBC mode carries state across CryptBlocks calls, so feeding the
	// ciphertext chunk by chunk yields the same plaintext as a single
	// pass.
	decrypter := cipher.NewCBCDecrypter(block, iv)
	plaintext := make([]byte, 0, len(ciphertext))
	buf := make([]byte, ChunkSize)
	for len(ciphertext) > 0 {
		n := len(ciphertext)
		if n > ChunkSize {
			n = ChunkSize
		}
		decrypter.CryptBlocks(buf[:n], ciphertext[:n])
		plaintext = append(plaintext, buf[:n]...)
		ciphertext = ciphertext[n:]
	}

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func newBlockCipher(base64Key string) (cipher.Block, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode content key: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("content key must be %d bytes, got %d", keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return block, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
