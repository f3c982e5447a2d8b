// Package address decides whether operator input names a valid account on
// the connected network and what its canonical display form is.
package address

// Codec is the address encoding and checksum collaborator.
type Codec interface {
	// Encode renders input as an address under prefix. It fails when the
	// input cannot be interpreted as an address at all.
	Encode(input string, prefix uint16) (string, error)
	// Check reports whether address is valid for prefix and, if not, why.
	Check(address string, prefix uint16) (bool, string)
}

// Result is the outcome of validating one input.
type Result struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Normalized string `json:"normalized,omitempty"`
}

// Validate normalizes input under prefix and checks it. When the input
// cannot be encoded the raw form is checked instead, so the result always
// carries a reason rather than failing.
func Validate(input string, prefix uint16, codec Codec) Result {
	target := input
	normalized, err := codec.Encode(input, prefix)
	if err == nil {
		target = normalized
	} else {
		normalized = ""
	}

	valid, reason := codec.Check(target, prefix)
	if valid {
		reason = ""
	} else if reason == "" {
		reason = "unknown"
	}

	return Result{
		Valid:      valid,
		Reason:     reason,
		Normalized: normalized,
	}
}

// Message is the text shown next to an input field: empty when valid.
func (r Result) Message() string {
	if r.Valid {
		return ""
	}
	return "Invalid: " + r.Reason
}
