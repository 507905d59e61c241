package types

import "strings"

const (
	// SompiPerKas is the multiplier between KAS and its smallest unit
	SompiPerKas uint64 = 100_000_000

	KaspaAddressPrefix = "kaspa:"
)

// bech32 alphabet used by kaspa addresses
const kaspaCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// IsKaspaAddress checks the shape of a mainnet kaspa address (prefix + bech32 payload).
// It does not verify the checksum.
func IsKaspaAddress(address string) bool {
	payload, ok := strings.CutPrefix(address, KaspaAddressPrefix)
	if !ok {
		return false
	}
	// schnorr (q...) payloads are 61 chars, ecdsa and p2sh ones 63
	if len(payload) < 61 || len(payload) > 63 {
		return false
	}
	for _, c := range payload {
		if !strings.ContainsRune(kaspaCharset, c) {
			return false
		}
	}
	return true
}

// SompiToKas formats an amount for log lines and user messages
func SompiToKas(sompi uint64) float64 {
	return float64(sompi) / float64(SompiPerKas)
}
