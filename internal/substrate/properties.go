package substrate

import (
	"encoding/json"
	"fmt"

	"github.com/matrixise/balance-lookup/internal/chain"
)

// rawProperties is the system_properties response. Multi-token chains
// report tokenDecimals and tokenSymbol as arrays, others as scalars.
type rawProperties struct {
	SS58Format    json.RawMessage `json:"ss58Format"`
	TokenDecimals json.RawMessage `json:"tokenDecimals"`
	TokenSymbol   json.RawMessage `json:"tokenSymbol"`
}

// firstOf decodes either a scalar or the first element of an array.
// ok is false when the field is absent, null or an empty array.
func firstOf[T any](raw json.RawMessage) (v T, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return v, false, nil
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return v, false, nil
		}
		return list[0], true, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// parseProperties maps system_properties onto NetworkParameters, keeping
// the defaults for anything the node does not report.
func parseProperties(raw rawProperties) (chain.NetworkParameters, error) {
	params := chain.DefaultNetworkParameters()

	prefix, ok, err := firstOf[uint16](raw.SS58Format)
	if err != nil {
		return params, fmt.Errorf("ss58Format: %w", err)
	}
	if ok {
		params.Prefix = prefix
	}

	decimals, ok, err := firstOf[uint8](raw.TokenDecimals)
	if err != nil {
		return params, fmt.Errorf("tokenDecimals: %w", err)
	}
	if ok {
		params.Decimals = decimals
	}

	symbol, ok, err := firstOf[string](raw.TokenSymbol)
	if err != nil {
		return params, fmt.Errorf("tokenSymbol: %w", err)
	}
	if ok && symbol != "" {
		params.Unit = symbol
	}

	return params, nil
}
