package mem

import (
	"encoding/binary"
	"math"

	"github.com/plcsim/stcore/pkg/fault"
)

// ---------------------------------------------------------------------------
// Region: one fixed-size absolute-addressed memory area
// ---------------------------------------------------------------------------
// A region owns exactly one byte buffer; bit, byte, word and dword views
// all alias those same bytes through the accessors below. The buffer
// never resizes and the byte order never changes after construction.

// Region is a fixed-size byte buffer backing one absolute area.
type Region struct {
	area  AreaID
	buf   []byte
	order binary.ByteOrder
}

// NewRegion allocates a zeroed region of the given size. The byte order
// is fixed for the region's lifetime.
func NewRegion(area AreaID, size int, order binary.ByteOrder) *Region {
	return &Region{area: area, buf: make([]byte, size), order: order}
}

// Area returns the region's area identifier.
func (r *Region) Area() AreaID { return r.area }

// Size returns the buffer size in bytes.
func (r *Region) Size() int { return len(r.buf) }

// Bytes returns a copy of the whole buffer.
func (r *Region) Bytes() []byte {
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	return out
}

// LoadBytes replaces the buffer contents. The source must match the
// configured size exactly; regions never resize.
func (r *Region) LoadBytes(src []byte) error {
	if len(src) != len(r.buf) {
		return fault.New(fault.OutOfRange,
			"area %s: image has %d bytes, region has %d", r.area, len(src), len(r.buf))
	}
	copy(r.buf, src)
	return nil
}

// check validates bounds and natural alignment for a width-byte access.
func (r *Region) check(offset, width int) error {
	if offset < 0 || offset+width > len(r.buf) {
		return fault.New(fault.OutOfRange,
			"area %s: offset %d width %d exceeds %d bytes", r.area, offset, width, len(r.buf))
	}
	if width > 1 && offset%width != 0 {
		return fault.New(fault.AlignmentError,
			"area %s: offset %d is not %d-byte aligned", r.area, offset, width)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Bit access
// ---------------------------------------------------------------------------

// Bit reads one bit. The bit offset must be in [0,7].
func (r *Region) Bit(offset, bit int) (bool, error) {
	if bit < 0 || bit > 7 {
		return false, fault.New(fault.InvalidAddress, "area %s: bit offset %d outside [0,7]", r.area, bit)
	}
	if err := r.check(offset, 1); err != nil {
		return false, err
	}
	return r.buf[offset]&(1<<uint(bit)) != 0, nil
}

// SetBit writes one bit, leaving the other bits of the byte untouched.
func (r *Region) SetBit(offset, bit int, v bool) error {
	if bit < 0 || bit > 7 {
		return fault.New(fault.InvalidAddress, "area %s: bit offset %d outside [0,7]", r.area, bit)
	}
	if err := r.check(offset, 1); err != nil {
		return err
	}
	if v {
		r.buf[offset] |= 1 << uint(bit)
	} else {
		r.buf[offset] &^= 1 << uint(bit)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Integer access
// ---------------------------------------------------------------------------

// Uint8 reads an unsigned byte.
func (r *Region) Uint8(offset int) (uint8, error) {
	if err := r.check(offset, 1); err != nil {
		return 0, err
	}
	return r.buf[offset], nil
}

// SetUint8 writes an unsigned byte.
func (r *Region) SetUint8(offset int, v uint8) error {
	if err := r.check(offset, 1); err != nil {
		return err
	}
	r.buf[offset] = v
	return nil
}

// Int8 reads a signed byte.
func (r *Region) Int8(offset int) (int8, error) {
	v, err := r.Uint8(offset)
	return int8(v), err
}

// SetInt8 writes a signed byte.
func (r *Region) SetInt8(offset int, v int8) error {
	return r.SetUint8(offset, uint8(v))
}

// Uint16 reads an unsigned word at a 2-byte-aligned offset.
func (r *Region) Uint16(offset int) (uint16, error) {
	if err := r.check(offset, 2); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.buf[offset:]), nil
}

// SetUint16 writes an unsigned word at a 2-byte-aligned offset.
func (r *Region) SetUint16(offset int, v uint16) error {
	if err := r.check(offset, 2); err != nil {
		return err
	}
	r.order.PutUint16(r.buf[offset:], v)
	return nil
}

// Int16 reads a signed word.
func (r *Region) Int16(offset int) (int16, error) {
	v, err := r.Uint16(offset)
	return int16(v), err
}

// SetInt16 writes a signed word.
func (r *Region) SetInt16(offset int, v int16) error {
	return r.SetUint16(offset, uint16(v))
}

// Uint32 reads an unsigned dword at a 4-byte-aligned offset.
func (r *Region) Uint32(offset int) (uint32, error) {
	if err := r.check(offset, 4); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.buf[offset:]), nil
}

// SetUint32 writes an unsigned dword at a 4-byte-aligned offset.
func (r *Region) SetUint32(offset int, v uint32) error {
	if err := r.check(offset, 4); err != nil {
		return err
	}
	r.order.PutUint32(r.buf[offset:], v)
	return nil
}

// Int32 reads a signed dword.
func (r *Region) Int32(offset int) (int32, error) {
	v, err := r.Uint32(offset)
	return int32(v), err
}

// SetInt32 writes a signed dword.
func (r *Region) SetInt32(offset int, v int32) error {
	return r.SetUint32(offset, uint32(v))
}

// Uint64 reads an unsigned 8-byte value at an 8-byte-aligned offset.
func (r *Region) Uint64(offset int) (uint64, error) {
	if err := r.check(offset, 8); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.buf[offset:]), nil
}

// SetUint64 writes an unsigned 8-byte value at an 8-byte-aligned offset.
func (r *Region) SetUint64(offset int, v uint64) error {
	if err := r.check(offset, 8); err != nil {
		return err
	}
	r.order.PutUint64(r.buf[offset:], v)
	return nil
}

// Int64 reads a signed 8-byte value.
func (r *Region) Int64(offset int) (int64, error) {
	v, err := r.Uint64(offset)
	return int64(v), err
}

// SetInt64 writes a signed 8-byte value.
func (r *Region) SetInt64(offset int, v int64) error {
	return r.SetUint64(offset, uint64(v))
}

// ---------------------------------------------------------------------------
// Float access
// ---------------------------------------------------------------------------

// Float32 reads an IEEE single at a 4-byte-aligned offset.
func (r *Region) Float32(offset int) (float32, error) {
	v, err := r.Uint32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// SetFloat32 writes an IEEE single at a 4-byte-aligned offset.
func (r *Region) SetFloat32(offset int, v float32) error {
	return r.SetUint32(offset, math.Float32bits(v))
}

// Float64 reads an IEEE double at an 8-byte-aligned offset.
func (r *Region) Float64(offset int) (float64, error) {
	v, err := r.Uint64(offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// SetFloat64 writes an IEEE double at an 8-byte-aligned offset.
func (r *Region) SetFloat64(offset int, v float64) error {
	return r.SetUint64(offset, math.Float64bits(v))
}

// ---------------------------------------------------------------------------
// Raw range access
// ---------------------------------------------------------------------------

// Range returns a copy of length bytes starting at offset.
func (r *Region) Range(offset, length int) ([]byte, error) {
	if length < 0 || offset < 0 || offset+length > len(r.buf) {
		return nil, fault.New(fault.OutOfRange,
			"area %s: range [%d,%d) exceeds %d bytes", r.area, offset, offset+length, len(r.buf))
	}
	out := make([]byte, length)
	copy(out, r.buf[offset:])
	return out, nil
}

// SetRange copies src into the buffer starting at offset.
func (r *Region) SetRange(offset int, src []byte) error {
	if offset < 0 || offset+len(src) > len(r.buf) {
		return fault.New(fault.OutOfRange,
			"area %s: range [%d,%d) exceeds %d bytes", r.area, offset, offset+len(src), len(r.buf))
	}
	copy(r.buf[offset:], src)
	return nil
}
