// Package crypto provides the content encryption primitives used by the
// web3telegram pipeline.
//
// Message content is encrypted with AES-256-CBC under a fresh random key
// before it ever leaves the sender. The wire format is:
//
//	IV (16 bytes) || ciphertext (PKCS#7 padded)
//
// Decryption is streamed in fixed-size chunks so that the worker's memory
// use is bounded regardless of message size.
//
// Keys travel as standard base64 strings inside the requester secret; see
// GenerateContentKey.
package crypto
