package ss58

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex       = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSubstrate = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot  = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	bobHex         = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	bobSubstrate   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		pubHex string
		prefix uint16
		want   string
	}{
		{"alice generic substrate", aliceHex, 42, aliceSubstrate},
		{"alice polkadot", aliceHex, 0, alicePolkadot},
		{"bob generic substrate", bobHex, 42, bobSubstrate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(mustHex(t, tt.pubHex), tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	t.Run("short key", func(t *testing.T) {
		_, err := Encode([]byte{1, 2, 3}, 42)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("prefix out of range", func(t *testing.T) {
		_, err := Encode(mustHex(t, aliceHex), MaxPrefix+1)
		assert.ErrorIs(t, err, ErrInvalidPrefix)
	})
}

func TestDecode(t *testing.T) {
	t.Run("known address", func(t *testing.T) {
		prefix, pub, err := Decode(aliceSubstrate)
		require.NoError(t, err)
		assert.Equal(t, uint16(42), prefix)
		assert.Equal(t, aliceHex, hex.EncodeToString(pub))
	})

	t.Run("tampered checksum", func(t *testing.T) {
		tampered := aliceSubstrate[:len(aliceSubstrate)-1] + "Z"
		_, _, err := Decode(tampered)
		assert.ErrorIs(t, err, ErrInvalidChecksum)
	})

	t.Run("invalid base58", func(t *testing.T) {
		_, _, err := Decode("not-an-address")
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, _, err := Decode("5GrwvaEF")
		assert.ErrorIs(t, err, ErrInvalidLength)
	})
}

func TestRoundTripTwoBytePrefixes(t *testing.T) {
	pub := mustHex(t, aliceHex)

	for _, prefix := range []uint16{0, 2, 42, 63, 64, 90, 255, 1000, 4242, MaxPrefix} {
		addr, err := Encode(pub, prefix)
		require.NoError(t, err, "prefix %d", prefix)

		gotPrefix, gotPub, err := Decode(addr)
		require.NoError(t, err, "prefix %d", prefix)
		assert.Equal(t, prefix, gotPrefix)
		assert.Equal(t, pub, gotPub)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		prefix     uint16
		wantValid  bool
		wantReason string
	}{
		{"valid substrate address", aliceSubstrate, 42, true, ""},
		{"valid polkadot address", alicePolkadot, 0, true, ""},
		{"prefix mismatch", aliceSubstrate, 0, false, "Prefix mismatch, expected 0, found 42"},
		{"bad checksum", aliceSubstrate[:len(aliceSubstrate)-1] + "Z", 42, false, "Invalid decoded address checksum"},
		{"too short", "5GrwvaEF", 42, false, "Invalid decoded address length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := Check(tt.address, tt.prefix)
			assert.Equal(t, tt.wantValid, valid)
			assert.Equal(t, tt.wantReason, reason)
		})
	}

	t.Run("garbage has a reason", func(t *testing.T) {
		valid, reason := Check("not-an-address", 42)
		assert.False(t, valid)
		assert.NotEmpty(t, reason)
	})
}

func TestCodecEncode(t *testing.T) {
	codec, err := NewCodec(8)
	require.NoError(t, err)

	t.Run("hex public key", func(t *testing.T) {
		addr, err := codec.Encode("0x"+aliceHex, 42)
		require.NoError(t, err)
		assert.Equal(t, aliceSubstrate, addr)
	})

	t.Run("re-encode under another prefix", func(t *testing.T) {
		addr, err := codec.Encode(aliceSubstrate, 0)
		require.NoError(t, err)
		assert.Equal(t, alicePolkadot, addr)
	})

	t.Run("cached result is stable", func(t *testing.T) {
		first, err := codec.Encode(bobSubstrate, 42)
		require.NoError(t, err)
		second, err := codec.Encode(bobSubstrate, 42)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, bobSubstrate, second)
	})

	t.Run("short hex key", func(t *testing.T) {
		_, err := codec.Encode("0x1234", 42)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("malformed hex", func(t *testing.T) {
		_, err := codec.Encode("0xzz", 42)
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := codec.Encode("  ", 42)
		assert.Error(t, err)
	})
}

func TestNewCodecDefaultSize(t *testing.T) {
	codec, err := NewCodec(0)
	require.NoError(t, err)
	assert.NotNil(t, codec)
}
