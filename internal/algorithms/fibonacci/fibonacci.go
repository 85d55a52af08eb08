// Package fibonacci builds the cyclic modulation table used by the standard transform.
package fibonacci

const (
	// DefaultLength is the period of the modulation table.
	DefaultLength = 10
	// MaxLength bounds a configured period.
	MaxLength = 1024
)

// Generate returns the first n Fibonacci numbers starting 0, 1. Lengths below
// two yield a truncated prefix. Terms past the 93rd wrap modulo 2^64, which
// leaves every term's value modulo 256 exact.
func Generate(n int) []uint64 {
	if n <= 0 {
		return []uint64{}
	}

	seq := make([]uint64, n)
	if n > 1 {
		seq[1] = 1
	}
	for i := 2; i < n; i++ {
		seq[i] = seq[i-1] + seq[i-2]
	}
	return seq
}
