package mem

import (
	"github.com/plcsim/stcore/pkg/fault"
)

// ---------------------------------------------------------------------------
// STRING encoding
// ---------------------------------------------------------------------------
// A STRING occupies two header bytes followed by the payload: byte 0 is
// the declared maximum length, byte 1 the current length, then up to max
// payload bytes. DefaultStringLen is used when a declaration carries no
// explicit [n] length.

// DefaultStringLen is the implied capacity of STRING without a declared
// length.
const DefaultStringLen = 254

// ReadString decodes a STRING at offset. maxLen is the caller-configured
// capacity (0 means DefaultStringLen). The returned text is bounded by
// the minimum of the configured maximum, the stored maximum header and
// the bytes remaining in the buffer.
func (r *Region) ReadString(offset, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultStringLen
	}
	// Strings carry no alignment requirement; only the two header bytes
	// must fit.
	if err := r.check(offset, 1); err != nil {
		return "", err
	}
	if offset+2 > len(r.buf) {
		return "", fault.New(fault.OutOfRange,
			"area %s: STRING header at offset %d exceeds %d bytes", r.area, offset, len(r.buf))
	}
	storedMax := int(r.buf[offset])
	cur := int(r.buf[offset+1])
	limit := maxLen
	if storedMax < limit {
		limit = storedMax
	}
	if remain := len(r.buf) - offset - 2; remain < limit {
		limit = remain
	}
	if cur > limit {
		cur = limit
	}
	return string(r.buf[offset+2 : offset+2+cur]), nil
}

// WriteString encodes s at offset with the given declared capacity
// (0 means DefaultStringLen). Both header bytes are recomputed and the
// unused payload is zero-padded. When s exceeds the capacity the write
// either truncates (truncate true) or fails with out-of-range, leaving
// memory unmodified.
func (r *Region) WriteString(offset, maxLen int, s string, truncate bool) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultStringLen
	}
	if maxLen > 254 {
		maxLen = 254
	}
	if err := r.check(offset, 1); err != nil {
		return "", err
	}
	if offset+2+maxLen > len(r.buf) {
		return "", fault.New(fault.OutOfRange,
			"area %s: STRING[%d] at offset %d exceeds %d bytes", r.area, maxLen, offset, len(r.buf))
	}
	if len(s) > maxLen {
		if !truncate {
			return "", fault.New(fault.OutOfRange,
				"area %s: string of length %d exceeds STRING[%d]", r.area, len(s), maxLen)
		}
		s = s[:maxLen]
	}
	r.buf[offset] = byte(maxLen)
	r.buf[offset+1] = byte(len(s))
	copy(r.buf[offset+2:], s)
	for i := offset + 2 + len(s); i < offset+2+maxLen; i++ {
		r.buf[i] = 0
	}
	return s, nil
}
