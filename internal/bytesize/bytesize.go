// Package bytesize reads and prints sizes such as "64Mi", "1.5GB" or
// "1048576". Binary suffixes (Ki, Mi, Gi, Ti, with or without a trailing
// B) are powers of 1024; decimal ones (K, M, G, T, KB, ...) are powers of
// 1000. Suffixes are case insensitive.
package bytesize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var suffixes = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB, "m": MB, "mb": MB, "g": GB, "gb": GB, "t": TB, "tb": TB,
	"ki": KiB, "kib": KiB, "mi": MiB, "mib": MiB, "gi": GiB, "gib": GiB, "ti": TiB, "tib": TiB,
}

// binary is ordered largest first.
var binary = []struct {
	size ByteSize
	unit string
}{{TiB, "Ti"}, {GiB, "Gi"}, {MiB, "Mi"}, {KiB, "Ki"}}

// Parse reads a size. Fractions are allowed ("1.5Gi") and truncated to
// whole bytes.
func Parse(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("bytesize: empty value")
	}

	end := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if end < 0 {
		end = len(s)
	}
	num, suffix := s[:end], strings.ToLower(strings.TrimSpace(s[end:]))
	if num == "" {
		return 0, fmt.Errorf("bytesize: %q does not start with a number", s)
	}
	mult, ok := suffixes[suffix]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q in %q", s[end:], s)
	}

	if !strings.Contains(num, ".") {
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bytesize: invalid number %q", num)
		}
		if n > math.MaxUint64/uint64(mult) {
			return 0, fmt.Errorf("bytesize: %q overflows", s)
		}
		return ByteSize(n) * mult, nil
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number %q", num)
	}
	v := f * float64(mult)
	if v >= math.MaxUint64 {
		return 0, fmt.Errorf("bytesize: %q overflows", s)
	}
	return ByteSize(v), nil
}

// FromInt64 converts a signed count, rejecting negative values.
func FromInt64(n int64) (ByteSize, error) {
	if n < 0 {
		return 0, fmt.Errorf("bytesize: negative size %d", n)
	}
	return ByteSize(n), nil
}

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalText uses the largest binary unit dividing b exactly, so values
// survive a round trip unchanged.
func (b ByteSize) MarshalText() ([]byte, error) {
	for _, u := range binary {
		if b >= u.size && b%u.size == 0 {
			return []byte(strconv.FormatUint(uint64(b/u.size), 10) + u.unit), nil
		}
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

// String prints b in the largest binary unit it reaches, with at most two
// decimals: "64MiB", "1.5GiB", "512B".
func (b ByteSize) String() string {
	for _, u := range binary {
		if b >= u.size {
			v := strconv.FormatFloat(float64(b)/float64(u.size), 'f', 2, 64)
			v = strings.TrimRight(strings.TrimRight(v, "0"), ".")
			return v + u.unit + "B"
		}
	}
	return strconv.FormatUint(uint64(b), 10) + "B"
}
