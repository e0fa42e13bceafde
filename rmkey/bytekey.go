package rmkey

// Domain fixes the feature-vector shape used to project variable-length byte
// strings onto a Key, and the byte range the index was built to accept. It
// implements the "byte-string variant" of spec §4.6: for this variant the
// domain is fixed at construction, and a key whose bytes fall outside
// [MinByte,MaxByte] or whose length exceeds Components is a real,
// surfaced DomainViolation rather than a silently widened model (spec §9,
// Open Question 1).
type Domain struct {
	// Components is L: the number of bytes consumed per key. Longer byte
	// strings are rejected with ErrDomainViolation.
	Components int
	// MinByte/MaxByte bound every accepted byte; bytes outside the range
	// reject with ErrDomainViolation rather than being silently clamped.
	MinByte, MaxByte byte
}

// NewDomain returns a Domain accepting the full unsigned-byte range
// [0,255] for an L-component byte key.
func NewDomain(components int) Domain {
	return Domain{Components: components, MinByte: 0, MaxByte: 0xff}
}

// ByteKey projects raw into a numeric Key according to d, returning
// ErrDomainViolation if raw is longer than d.Components or contains a byte
// outside [d.MinByte, d.MaxByte].
//
// Each byte becomes one feature component scaled to [0,1] so that the
// resulting LinearModel slope has comparable magnitude across components;
// shorter byte strings are zero-padded on the right, which preserves
// lexicographic order: "ab" < "abc" since the third component of "ab"'s
// projection is 0, strictly less than any non-zero byte of "abc".
func (d Domain) ByteKey(raw []byte) (Key, error) {
	if len(raw) > d.Components {
		return nil, ErrDomainViolation
	}
	k := make(Key, d.Components)
	for i, b := range raw {
		if b < d.MinByte || b > d.MaxByte {
			return nil, ErrDomainViolation
		}
		k[i] = float64(b) / 255.0
	}
	return k, nil
}

// MustByteKey panics on ErrDomainViolation; intended for test fixtures and
// call sites that have already validated raw against d.
func (d Domain) MustByteKey(raw []byte) Key {
	k, err := d.ByteKey(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// StringKey is sugar for ByteKey([]byte(s)).
func (d Domain) StringKey(s string) (Key, error) {
	return d.ByteKey([]byte(s))
}
