package recovery

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	secondsPerHour   = 3600
	secondsPerMinute = 60
	metersPerKm      = 1000
)

// FormatDuration renders seconds as "{h}h {m}min", or "{m}min" below one
// hour. Leftover seconds are dropped.
func FormatDuration(seconds int64) string {
	hours := seconds / secondsPerHour
	minutes := (seconds % secondsPerHour) / secondsPerMinute
	if hours > 0 {
		return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(minutes, 10) + "min"
	}
	return strconv.FormatInt(minutes, 10) + "min"
}

func formatKilometers(meters float64) string {
	return toFixed(meters/metersPerKm, 2) + " km"
}

func formatOneDecimal(v float64) string {
	return toFixed(v, 1)
}

// toFixed formats v with digits decimals, rounding the exact binary value to
// nearest and exact ties away from zero.
func toFixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	// 256 bits hold any float64 times a small power of ten exactly.
	const prec = 256
	scaled := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(v))
	scaled.Mul(scaled, new(big.Float).SetPrec(prec).SetFloat64(math.Pow10(digits)))

	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(scaled, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	digitsStr := whole.Add(whole, big.NewInt(1)).String()
	if pad := digits + 1 - len(digitsStr); pad > 0 {
		digitsStr = strings.Repeat("0", pad) + digitsStr
	}
	out := digitsStr
	if digits > 0 {
		cut := len(digitsStr) - digits
		out = digitsStr[:cut] + "." + digitsStr[cut:]
	}
	if v < 0 {
		out = "-" + out
	}
	return out
}
