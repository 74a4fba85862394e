package utils

import (
	"os"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — No fmt/strconv
///////////////////////////////////////////////////////////////////////////////

// Itoa renders a signed integer without going through fmt/strconv, for use
// on the debug package's cold paths where an allocation would be wasteful
// relative to the string it produces.
//
//go:nosplit
func Itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

///////////////////////////////////////////////////////////////////////////////
// Cold-Path Output — Direct Writes, No fmt
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes msg to stderr directly, bypassing fmt's formatting
// machinery. Reserved for the debug package's cold paths; never call this
// from a pinned critical section.
func PrintWarning(msg string) {
	os.Stderr.WriteString(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Hash & Mixers — For fingerprint indexing
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies a Murmur3-style avalanche to a 64-bit value. Used to
// randomize index mapping inside the retire-guard fingerprint ring.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
