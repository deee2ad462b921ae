package sfmutils

import "math"

// Combine32 joins two 16-bit registers into one 32-bit value, high word first.
// Used for the shift sequence and for the total filled weight.
func Combine32(low, high uint16) uint32 {
	return uint32(high)<<16 | uint32(low)
}

// Split32 is the inverse of Combine32.
func Split32(v uint32) (low, high uint16) {
	return uint16(v & 0xFFFF), uint16(v >> 16)
}

// Grams to kilograms, no negative values
func GramsToKg(g int64) float64 {
	if g < 0 {
		return 0
	}
	return float64(g) / 1000
}

// Round to 2 decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
