package address

import (
	"errors"
	"testing"

	"github.com/matrixise/balance-lookup/internal/ss58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex       = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSubstrate = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot  = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
)

type stubCodec struct {
	encodeErr error
	encoded   string
	checked   []string
	valid     bool
	reason    string
}

func (s *stubCodec) Encode(input string, prefix uint16) (string, error) {
	if s.encodeErr != nil {
		return "", s.encodeErr
	}
	return s.encoded, nil
}

func (s *stubCodec) Check(address string, prefix uint16) (bool, string) {
	s.checked = append(s.checked, address)
	return s.valid, s.reason
}

func TestValidateWithSS58(t *testing.T) {
	codec, err := ss58.NewCodec(16)
	require.NoError(t, err)

	tests := []struct {
		name           string
		input          string
		prefix         uint16
		wantValid      bool
		wantNormalized string
	}{
		{"canonical address", aliceSubstrate, 42, true, aliceSubstrate},
		{"hex public key", aliceHex, 42, true, aliceSubstrate},
		{"other network address is normalized", alicePolkadot, 42, true, aliceSubstrate},
		{"garbage", "hello world", 42, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.input, tt.prefix, codec)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantNormalized, got.Normalized)
			if tt.wantValid {
				assert.Empty(t, got.Reason)
			} else {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestValidateFallsBackToRawInput(t *testing.T) {
	codec := &stubCodec{
		encodeErr: errors.New("cannot decode"),
		valid:     false,
		reason:    "Invalid decoded address checksum",
	}

	got := Validate("raw-input", 42, codec)

	assert.Equal(t, []string{"raw-input"}, codec.checked)
	assert.Equal(t, Result{Valid: false, Reason: "Invalid decoded address checksum"}, got)
	assert.Equal(t, "Invalid: Invalid decoded address checksum", got.Message())
}

func TestValidateChecksNormalizedForm(t *testing.T) {
	codec := &stubCodec{encoded: "normalized", valid: true, reason: "ignored"}

	got := Validate("raw-input", 42, codec)

	assert.Equal(t, []string{"normalized"}, codec.checked)
	assert.True(t, got.Valid)
	assert.Empty(t, got.Reason)
	assert.Equal(t, "normalized", got.Normalized)
	assert.Empty(t, got.Message())
}

func TestValidateUnknownReason(t *testing.T) {
	codec := &stubCodec{encodeErr: errors.New("nope")}

	got := Validate("x", 42, codec)

	assert.False(t, got.Valid)
	assert.Equal(t, "unknown", got.Reason)
}
