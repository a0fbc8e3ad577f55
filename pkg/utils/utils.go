package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultIPFSGateway is used when no gateway is configured.
const DefaultIPFSGateway = "https://ipfs.io/ipfs/"

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func AddCommas(s string) string {
	if len(s) == 0 {
		return s
	}
	parts := strings.Split(s, ".")
	integerPart := parts[0]
	sign := ""
	if strings.HasPrefix(integerPart, "-") {
		sign = "-"
		integerPart = integerPart[1:]
	}

	n := len(integerPart)
	if n <= 3 {
		return s
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(integerPart[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < n; i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(integerPart[i : i+3])
	}

	if len(parts) > 1 {
		result.WriteString(".")
		result.WriteString(parts[1])
	}
	return result.String()
}

// ToUnits converts a base-unit amount (e.g. wei) into whole token units.
func ToUnits(amount *big.Int, tokenDecimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, int32(-tokenDecimals))
}

// FormatPrice renders a base-unit amount with the given number of places.
func FormatPrice(amount *big.Int, tokenDecimals, places int) string {
	if amount == nil {
		return "-"
	}
	return AddCommas(ToUnits(amount, tokenDecimals).StringFixed(int32(places)))
}

// PriceToFloat64 is for plotting only. Never compare prices with it.
func PriceToFloat64(amount *big.Int, tokenDecimals int) float64 {
	return ToUnits(amount, tokenDecimals).InexactFloat64()
}

// ResolveURI maps ipfs:// URIs onto an HTTP gateway. Other URIs are
// returned unchanged.
func ResolveURI(uri, gateway string) string {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "ipfs://") {
		return uri
	}
	if gateway == "" {
		gateway = DefaultIPFSGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	path := strings.TrimPrefix(uri, "ipfs://")
	path = strings.TrimPrefix(path, "ipfs/")
	return gateway + path
}
