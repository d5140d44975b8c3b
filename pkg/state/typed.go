package state

import (
	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Per-type read/write surface
// ---------------------------------------------------------------------------
// One pair per scalar type, all thin wrappers over ReadValue/WriteValue.
// Numeric results travel as float64 except LINT, which stays exact.

// ReadBool reads a BOOL from a bit address or symbol.
func (d *Device) ReadBool(addr string) (bool, error) {
	v, err := d.ReadValue(addr, ir.TypeBool, 0)
	return v.B, err
}

// WriteBool writes a BOOL.
func (d *Device) WriteBool(addr string, v bool) error {
	return d.WriteValue(addr, ir.TypeBool, 0, ir.Bool(v), false)
}

// ReadByte reads a BYTE.
func (d *Device) ReadByte(addr string) (uint8, error) {
	v, err := d.ReadValue(addr, ir.TypeByte, 0)
	return uint8(v.N), err
}

// WriteByte writes a BYTE.
func (d *Device) WriteByte(addr string, v uint8) error {
	return d.WriteValue(addr, ir.TypeByte, 0, ir.Number(ir.TypeByte, float64(v)), false)
}

// ReadSInt reads a SINT.
func (d *Device) ReadSInt(addr string) (int8, error) {
	v, err := d.ReadValue(addr, ir.TypeSInt, 0)
	return int8(v.N), err
}

// WriteSInt writes a SINT.
func (d *Device) WriteSInt(addr string, v int8) error {
	return d.WriteValue(addr, ir.TypeSInt, 0, ir.Number(ir.TypeSInt, float64(v)), false)
}

// ReadWord reads a WORD.
func (d *Device) ReadWord(addr string) (uint16, error) {
	v, err := d.ReadValue(addr, ir.TypeWord, 0)
	return uint16(v.N), err
}

// WriteWord writes a WORD.
func (d *Device) WriteWord(addr string, v uint16) error {
	return d.WriteValue(addr, ir.TypeWord, 0, ir.Number(ir.TypeWord, float64(v)), false)
}

// ReadInt reads an INT.
func (d *Device) ReadInt(addr string) (int16, error) {
	v, err := d.ReadValue(addr, ir.TypeInt, 0)
	return int16(v.N), err
}

// WriteInt writes an INT.
func (d *Device) WriteInt(addr string, v int16) error {
	return d.WriteValue(addr, ir.TypeInt, 0, ir.Number(ir.TypeInt, float64(v)), false)
}

// ReadDWord reads a DWORD.
func (d *Device) ReadDWord(addr string) (uint32, error) {
	v, err := d.ReadValue(addr, ir.TypeDWord, 0)
	return uint32(v.N), err
}

// WriteDWord writes a DWORD.
func (d *Device) WriteDWord(addr string, v uint32) error {
	return d.WriteValue(addr, ir.TypeDWord, 0, ir.Number(ir.TypeDWord, float64(v)), false)
}

// ReadDInt reads a DINT.
func (d *Device) ReadDInt(addr string) (int32, error) {
	v, err := d.ReadValue(addr, ir.TypeDInt, 0)
	return int32(v.N), err
}

// WriteDInt writes a DINT.
func (d *Device) WriteDInt(addr string, v int32) error {
	return d.WriteValue(addr, ir.TypeDInt, 0, ir.Number(ir.TypeDInt, float64(v)), false)
}

// ReadLInt reads a LINT. The value stays on the exact 64-bit path.
func (d *Device) ReadLInt(addr string) (int64, error) {
	v, err := d.ReadValue(addr, ir.TypeLInt, 0)
	return v.I, err
}

// WriteLInt writes a LINT.
func (d *Device) WriteLInt(addr string, v int64) error {
	return d.WriteValue(addr, ir.TypeLInt, 0, ir.LInt(v), false)
}

// ReadReal reads a REAL.
func (d *Device) ReadReal(addr string) (float32, error) {
	v, err := d.ReadValue(addr, ir.TypeReal, 0)
	return float32(v.N), err
}

// WriteReal writes a REAL.
func (d *Device) WriteReal(addr string, v float32) error {
	return d.WriteValue(addr, ir.TypeReal, 0, ir.Number(ir.TypeReal, float64(v)), false)
}

// ReadLReal reads an LREAL.
func (d *Device) ReadLReal(addr string) (float64, error) {
	v, err := d.ReadValue(addr, ir.TypeLReal, 0)
	return v.N, err
}

// WriteLReal writes an LREAL.
func (d *Device) WriteLReal(addr string, v float64) error {
	return d.WriteValue(addr, ir.TypeLReal, 0, ir.Number(ir.TypeLReal, v), false)
}

// ReadTime reads a TIME as milliseconds.
func (d *Device) ReadTime(addr string) (int64, error) {
	v, err := d.ReadValue(addr, ir.TypeTime, 0)
	return int64(v.N), err
}

// WriteTime writes a TIME given in milliseconds.
func (d *Device) WriteTime(addr string, ms int64) error {
	return d.WriteValue(addr, ir.TypeTime, 0, ir.Number(ir.TypeTime, float64(ms)), false)
}

// ReadDate reads a DATE as days since the epoch.
func (d *Device) ReadDate(addr string) (uint16, error) {
	v, err := d.ReadValue(addr, ir.TypeDate, 0)
	return uint16(v.N), err
}

// WriteDate writes a DATE given as days since the epoch.
func (d *Device) WriteDate(addr string, days uint16) error {
	return d.WriteValue(addr, ir.TypeDate, 0, ir.Number(ir.TypeDate, float64(days)), false)
}

// ReadTOD reads a TIME_OF_DAY as milliseconds since midnight.
func (d *Device) ReadTOD(addr string) (uint32, error) {
	v, err := d.ReadValue(addr, ir.TypeTOD, 0)
	return uint32(v.N), err
}

// WriteTOD writes a TIME_OF_DAY given as milliseconds since midnight.
func (d *Device) WriteTOD(addr string, ms uint32) error {
	return d.WriteValue(addr, ir.TypeTOD, 0, ir.Number(ir.TypeTOD, float64(ms)), false)
}

// ReadString reads a STRING bounded by maxLen (0 means the default
// capacity).
func (d *Device) ReadString(addr string, maxLen int) (string, error) {
	v, err := d.ReadValue(addr, ir.TypeString, maxLen)
	return v.S, err
}

// WriteString writes a STRING. When v exceeds maxLen the write fails
// with out-of-range unless truncate is set.
func (d *Device) WriteString(addr string, maxLen int, v string, truncate bool) error {
	return d.WriteValue(addr, ir.TypeString, maxLen, ir.String(v), truncate)
}
