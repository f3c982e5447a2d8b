package ss58

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized encodings.
const DefaultCacheSize = 1024

// Codec normalizes operator input into SS58 addresses for a network and
// checks addresses against a network prefix. Encodings are memoized.
type Codec struct {
	cache *lru.Cache[string, string]
}

// NewCodec creates a codec with an LRU of the given size.
func NewCodec(size int) (*Codec, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create address cache: %w", err)
	}
	return &Codec{cache: cache}, nil
}

// PublicKey extracts the account id from either a 0x-prefixed hex public
// key or an SS58 address of any network.
func PublicKey(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty address")
	}

	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		pub, err := hexutil.Decode("0x" + input[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid hex public key: %w", err)
		}
		if !validKeyLen(len(pub)) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidKey, len(pub))
		}
		return pub, nil
	}

	_, pub, err := Decode(input)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// Encode re-encodes an address or hex public key under prefix.
func (c *Codec) Encode(input string, prefix uint16) (string, error) {
	key := strconv.FormatUint(uint64(prefix), 10) + "/" + input
	if addr, ok := c.cache.Get(key); ok {
		return addr, nil
	}

	pub, err := PublicKey(input)
	if err != nil {
		return "", err
	}
	addr, err := Encode(pub, prefix)
	if err != nil {
		return "", err
	}

	c.cache.Add(key, addr)
	return addr, nil
}

// Check validates an SS58 address against the expected network prefix.
// When the address is invalid a human-readable reason is returned.
func (c *Codec) Check(address string, prefix uint16) (bool, string) {
	return Check(address, prefix)
}

// Check validates an SS58 address against the expected network prefix.
func Check(address string, prefix uint16) (bool, string) {
	found, _, err := Decode(address)
	if err != nil && !errors.Is(err, ErrInvalidChecksum) {
		return false, reason(err)
	}
	if found != prefix {
		return false, fmt.Sprintf("Prefix mismatch, expected %d, found %d", prefix, found)
	}
	if err != nil {
		return false, reason(err)
	}
	return true, ""
}

// reason renders decode failures with the wording wallets and explorers
// show for them.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidLength):
		return "Invalid decoded address length"
	case errors.Is(err, ErrInvalidChecksum):
		return "Invalid decoded address checksum"
	default:
		return err.Error()
	}
}
