package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	base58Charset = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	bech32MinLen = 14
	bech32MaxLen = 74
	base58MinLen = 26
	base58MaxLen = 35
)

// Checked is the normalised form of an input that passed CheckFormat.
type Checked struct {
	Value string

	// Amount is set for KindAmount.
	Amount *float64

	// AddressType names the script type when a testnet address decodes
	// fully (e.g. "P2WPKH"). Empty when only the prefix rules matched.
	AddressType string
}

// CheckFormat applies the local rules for kind. It is pure: the same
// (kind, raw, vctx) always yields the same verdict.
func CheckFormat(kind Kind, raw string, vctx Context) (Checked, error) {
	input := strings.TrimSpace(raw)
	switch kind {
	case KindTransaction:
		return checkTransaction(input, vctx.Profile)
	case KindAddress:
		return checkAddress(input, vctx.Profile)
	case KindAmount:
		return checkAmount(input, vctx)
	case KindCustom:
		if input == "" {
			return Checked{}, &FormatError{Kind: kind, Reason: "Please enter an answer."}
		}
		return Checked{Value: input}, nil
	}
	return Checked{}, &FormatError{Kind: kind, Reason: fmt.Sprintf("Unsupported validation kind %q.", kind)}
}

func checkTransaction(input string, p Profile) (Checked, error) {
	lo, hi := p.txBounds()
	if !isHex(input) || len(input) < lo || len(input) > hi {
		return Checked{}, &FormatError{Kind: KindTransaction, Reason: txRequirement(lo, hi)}
	}

	value := strings.ToLower(input)
	if len(value) == chainhash.MaxHashStringSize {
		h, err := chainhash.NewHashFromStr(value)
		if err != nil {
			return Checked{}, &FormatError{Kind: KindTransaction, Reason: txRequirement(lo, hi)}
		}
		value = h.String()
	}
	return Checked{Value: value}, nil
}

func txRequirement(lo, hi int) string {
	if lo == hi {
		return fmt.Sprintf("The transaction ID must be exactly %d hexadecimal characters (0-9, a-f).", lo)
	}
	return fmt.Sprintf("The identifier must be between %d and %d hexadecimal characters (0-9, a-f).", lo, hi)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func checkAddress(input string, p Profile) (Checked, error) {
	if input == "" {
		return Checked{}, &FormatError{Kind: KindAddress, Reason: "Please enter an address."}
	}

	prefix, ok := matchPrefix(input, p.prefixes())
	if !ok {
		return Checked{}, &FormatError{
			Kind:   KindAddress,
			Reason: fmt.Sprintf("The address must start with one of: %s.", strings.Join(p.prefixes(), ", ")),
		}
	}

	switch {
	case prefix == "tb1":
		return checkBech32(input)
	case prefix == "2" || prefix == "m" || prefix == "n":
		return checkBase58(input)
	case strings.HasPrefix(prefix, "ln"):
		if len(input) <= len(prefix) {
			return Checked{}, &FormatError{Kind: KindAddress, Reason: "The invoice is too short."}
		}
		return Checked{Value: strings.ToLower(input), AddressType: "invoice"}, nil
	}
	return Checked{Value: input}, nil
}

// matchPrefix returns the longest matching prefix. Bech32 prefixes match
// case-insensitively, base58 ones exactly.
func matchPrefix(input string, prefixes []string) (string, bool) {
	best := ""
	lower := strings.ToLower(input)
	for _, p := range prefixes {
		candidate := input
		if len(p) > 1 {
			candidate = lower
		}
		if strings.HasPrefix(candidate, p) && len(p) > len(best) {
			best = p
		}
	}
	return best, best != ""
}

func checkBech32(input string) (Checked, error) {
	lower := strings.ToLower(input)
	if input != lower && input != strings.ToUpper(input) {
		return Checked{}, &FormatError{Kind: KindAddress, Reason: "Bech32 addresses cannot mix upper and lower case."}
	}
	if len(lower) < bech32MinLen || len(lower) > bech32MaxLen {
		return Checked{}, &FormatError{
			Kind:   KindAddress,
			Reason: fmt.Sprintf("A tb1 address must be between %d and %d characters long.", bech32MinLen, bech32MaxLen),
		}
	}
	for _, r := range lower[len("tb1"):] {
		if !strings.ContainsRune(bech32Charset, r) {
			return Checked{}, &FormatError{
				Kind:   KindAddress,
				Reason: fmt.Sprintf("Character %q is not allowed in a bech32 address.", r),
			}
		}
	}
	return Checked{Value: lower, AddressType: decodedType(lower)}, nil
}

func checkBase58(input string) (Checked, error) {
	if len(input) < base58MinLen || len(input) > base58MaxLen {
		return Checked{}, &FormatError{
			Kind:   KindAddress,
			Reason: fmt.Sprintf("A legacy testnet address must be between %d and %d characters long.", base58MinLen, base58MaxLen),
		}
	}
	for _, r := range input {
		if !strings.ContainsRune(base58Charset, r) {
			return Checked{}, &FormatError{
				Kind:   KindAddress,
				Reason: fmt.Sprintf("Character %q is not allowed in a base58 address.", r),
			}
		}
	}
	return Checked{Value: input, AddressType: decodedType(input)}, nil
}

// decodedType names the script type when the address fully decodes on
// testnet. A failed decode is not an error: the checksum is not part of
// the format rules.
func decodedType(addr string) string {
	decoded, err := btcutil.DecodeAddress(addr, &chaincfg.TestNet3Params)
	if err != nil || !decoded.IsForNet(&chaincfg.TestNet3Params) {
		return ""
	}
	switch decoded.(type) {
	case *btcutil.AddressWitnessPubKeyHash:
		return "P2WPKH"
	case *btcutil.AddressWitnessScriptHash:
		return "P2WSH"
	case *btcutil.AddressTaproot:
		return "P2TR"
	case *btcutil.AddressPubKeyHash:
		return "P2PKH"
	case *btcutil.AddressScriptHash:
		return "P2SH"
	}
	return ""
}

func checkAmount(input string, vctx Context) (Checked, error) {
	normalized := input
	if !strings.Contains(normalized, ".") && strings.Count(normalized, ",") == 1 {
		normalized = strings.Replace(normalized, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Checked{}, &FormatError{Kind: KindAmount, Reason: "Please enter a valid number."}
	}

	allowZero := vctx.Field == FieldFee || vctx.Profile.AmountAllowsZero
	switch {
	case allowZero && v < 0:
		return Checked{}, &FormatError{Kind: KindAmount, Reason: "The amount must be zero or greater."}
	case !allowZero && v <= 0:
		return Checked{}, &FormatError{Kind: KindAmount, Reason: "The amount must be greater than zero."}
	}
	return Checked{Value: strconv.FormatFloat(v, 'f', -1, 64), Amount: &v}, nil
}
