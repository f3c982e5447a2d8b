// Package ss58 implements the SS58 address format used by Substrate chains:
// base58(prefix ‖ public key ‖ checksum), where the checksum is the first two
// bytes of blake2b-512("SS58PRE" ‖ prefix ‖ public key).
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	checksumLen = 2

	// MaxPrefix is the largest network identifier that fits the two-byte form.
	MaxPrefix = 16383
)

var checksumPreimage = []byte("SS58PRE")

var (
	ErrInvalidLength   = errors.New("invalid decoded address length")
	ErrInvalidChecksum = errors.New("invalid decoded address checksum")
	ErrInvalidPrefix   = errors.New("invalid network prefix")
	ErrInvalidKey      = errors.New("invalid public key length")
)

// validKeyLen reports whether n is a supported account id length
// (32 for sr25519/ed25519, 33 for compressed ecdsa).
func validKeyLen(n int) bool {
	return n == 32 || n == 33
}

// prefixBytes encodes a network identifier in its one or two byte form.
func prefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= MaxPrefix:
		return []byte{
			byte((prefix&0x00fc)>>2) | 0x40,
			byte(prefix>>8) | byte((prefix&0x0003)<<6),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
}

func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPreimage)
	h.Write(payload)
	return h.Sum(nil)[:checksumLen]
}

// Encode renders a public key as an SS58 address for the given network.
func Encode(pub []byte, prefix uint16) (string, error) {
	if !validKeyLen(len(pub)) {
		return "", fmt.Errorf("%w: %d", ErrInvalidKey, len(pub))
	}
	pfx, err := prefixBytes(prefix)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(pfx)+len(pub)+checksumLen)
	payload = append(payload, pfx...)
	payload = append(payload, pub...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload), nil
}

// Decode parses an SS58 address and returns its network identifier and
// public key. The checksum is verified.
func Decode(address string) (uint16, []byte, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding %s: %w", address, err)
	}
	if len(data) == 0 {
		return 0, nil, ErrInvalidLength
	}

	var (
		prefix    uint16
		prefixLen int
	)
	switch {
	case data[0] < 64:
		prefix, prefixLen = uint16(data[0]), 1
	case data[0] < 128:
		if len(data) < 2 {
			return 0, nil, ErrInvalidLength
		}
		lower := uint16(data[0]&0x3f)<<2 | uint16(data[1]>>6)
		upper := uint16(data[1]&0x3f) << 8
		prefix, prefixLen = lower|upper, 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidPrefix, data[0])
	}

	keyLen := len(data) - prefixLen - checksumLen
	if !validKeyLen(keyLen) {
		return 0, nil, ErrInvalidLength
	}

	payload := data[:prefixLen+keyLen]
	if !bytes.Equal(checksum(payload), data[prefixLen+keyLen:]) {
		return prefix, nil, ErrInvalidChecksum
	}

	pub := make([]byte, keyLen)
	copy(pub, data[prefixLen:prefixLen+keyLen])
	return prefix, pub, nil
}
