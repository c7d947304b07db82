package alert

import (
	"math"
	"strconv"
	"strings"
)

// formatTotal renders an order total the way the alert text has always shown
// it: whole numbers keep a trailing ".0", very large or very small magnitudes
// switch to exponent form.
func formatTotal(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if abs := math.Abs(v); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatThreshold renders the configured threshold without a forced decimal.
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
