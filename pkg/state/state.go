// Package state unifies the three absolute memory areas and the
// data-block symbol store behind one typed read/write surface, with
// snapshot, diff and synchronous change notification. Nothing here ever
// panics on user input: every failure is a structured fault error.
package state

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/plcsim/stcore/pkg/fault"
	"github.com/plcsim/stcore/pkg/ir"
	"github.com/plcsim/stcore/pkg/mem"
	"github.com/plcsim/stcore/pkg/symstore"
)

// ---------------------------------------------------------------------------
// Device construction
// ---------------------------------------------------------------------------

// Config sizes the absolute areas and fixes their byte order. A zero
// size leaves the area unconfigured; access to it fails with
// uninitialized-area.
type Config struct {
	InputSize  int
	OutputSize int
	FlagSize   int
	ByteOrder  binary.ByteOrder // nil means big-endian
}

// Device is the memory/state façade for one simulated controller. It is
// constructed once per device and mutated in place; concurrent use must
// be serialized by the embedder.
type Device struct {
	inputs  *mem.Region
	outputs *mem.Region
	flags   *mem.Region
	db      *symstore.Store

	subs     map[uuid.UUID]*subscription
	subOrder []uuid.UUID
}

// NewDevice builds a device from the area configuration and an optional
// symbol store (nil when the device has no data blocks).
func NewDevice(cfg Config, db *symstore.Store) *Device {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.BigEndian
	}
	d := &Device{
		db:   db,
		subs: make(map[uuid.UUID]*subscription),
	}
	if cfg.InputSize > 0 {
		d.inputs = mem.NewRegion(mem.AreaInput, cfg.InputSize, order)
	}
	if cfg.OutputSize > 0 {
		d.outputs = mem.NewRegion(mem.AreaOutput, cfg.OutputSize, order)
	}
	if cfg.FlagSize > 0 {
		d.flags = mem.NewRegion(mem.AreaFlag, cfg.FlagSize, order)
	}
	return d
}

// Symbols exposes the device's symbol store (nil when unconfigured).
func (d *Device) Symbols() *symstore.Store { return d.db }

func (d *Device) region(area mem.AreaID) (*mem.Region, error) {
	var r *mem.Region
	switch area {
	case mem.AreaInput:
		r = d.inputs
	case mem.AreaOutput:
		r = d.outputs
	case mem.AreaFlag:
		r = d.flags
	}
	if r == nil {
		return nil, fault.New(fault.UninitializedArea, "area %s is not configured", area)
	}
	return r, nil
}

// ---------------------------------------------------------------------------
// Change notification
// ---------------------------------------------------------------------------

// RegionTag identifies the destination of a write for notifications.
type RegionTag string

const (
	RegionInputs  RegionTag = "I"
	RegionOutputs RegionTag = "Q"
	RegionFlags   RegionTag = "M"
	RegionDB      RegionTag = "DB"
)

// Change describes one observed value change.
type Change struct {
	Region  RegionTag
	Address string // canonical absolute token or symbol path
	Old     ir.Value
	New     ir.Value
}

// Listener receives changes synchronously, in-line with the write that
// caused them, before the write call returns. A listener error
// propagates to the writer.
type Listener func(Change) error

type subscription struct {
	region RegionTag // "" subscribes to the whole state
	fn     Listener
}

// Subscription is an unsubscribe handle.
type Subscription struct {
	ID     uuid.UUID
	device *Device
}

// Cancel removes the subscription. Safe to call more than once.
func (s Subscription) Cancel() {
	if s.device == nil {
		return
	}
	if _, ok := s.device.subs[s.ID]; !ok {
		return
	}
	delete(s.device.subs, s.ID)
	for i, id := range s.device.subOrder {
		if id == s.ID {
			s.device.subOrder = append(s.device.subOrder[:i], s.device.subOrder[i+1:]...)
			break
		}
	}
}

// Subscribe registers a state-wide change listener.
func (d *Device) Subscribe(fn Listener) Subscription {
	return d.subscribe("", fn)
}

// SubscribeRegion registers a listener for one region only.
func (d *Device) SubscribeRegion(region RegionTag, fn Listener) Subscription {
	return d.subscribe(region, fn)
}

func (d *Device) subscribe(region RegionTag, fn Listener) Subscription {
	id := uuid.New()
	d.subs[id] = &subscription{region: region, fn: fn}
	d.subOrder = append(d.subOrder, id)
	return Subscription{ID: id, device: d}
}

// notify fires listeners in subscription order. The first listener
// error aborts the remaining notifications and propagates.
func (d *Device) notify(c Change) error {
	for _, id := range d.subOrder {
		sub := d.subs[id]
		if sub == nil {
			continue
		}
		if sub.region != "" && sub.region != c.Region {
			continue
		}
		if err := sub.fn(c); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Generic typed access
// ---------------------------------------------------------------------------

// ReadValue reads the value at an address string (absolute or symbolic)
// as the given type. strLen bounds STRING reads (0 means the default
// capacity).
func (d *Device) ReadValue(addr string, t ir.DataType, strLen int) (ir.Value, error) {
	a, ok := mem.Parse(addr)
	if !ok {
		return ir.Value{}, fault.At(fault.InvalidAddress, addr, "unparseable address")
	}
	if a.Kind == mem.KindSymbolic {
		if d.db == nil {
			return ir.Value{}, fault.At(fault.UninitializedArea, addr, "device has no data blocks")
		}
		_, v, err := d.db.Read(a.Path)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Coerce(t, strLen, v, true)
	}
	r, err := d.region(a.Area)
	if err != nil {
		return ir.Value{}, wrapAt(err, addr)
	}
	v, err := readAbsolute(r, a, t, strLen)
	if err != nil {
		return ir.Value{}, wrapAt(err, addr)
	}
	return v, nil
}

// WriteValue coerces v to the given type and writes it at the address.
// Notifications fire only when the stored value actually changed.
func (d *Device) WriteValue(addr string, t ir.DataType, strLen int, v ir.Value, truncateStrings bool) error {
	a, ok := mem.Parse(addr)
	if !ok {
		return fault.At(fault.InvalidAddress, addr, "unparseable address")
	}
	if a.Kind == mem.KindSymbolic {
		if d.db == nil {
			return fault.At(fault.UninitializedArea, addr, "device has no data blocks")
		}
		sym, old, err := d.db.Read(a.Path)
		if err != nil {
			return err
		}
		sym, changed, err := d.db.Write(a.Path, v, truncateStrings)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return d.notify(Change{Region: RegionDB, Address: sym.Path, Old: old, New: sym.Value()})
	}
	r, err := d.region(a.Area)
	if err != nil {
		return wrapAt(err, addr)
	}
	coerced, err := ir.Coerce(t, strLen, v, truncateStrings)
	if err != nil {
		return wrapAt(err, addr)
	}
	old, err := readAbsolute(r, a, t, strLen)
	if err != nil {
		return wrapAt(err, addr)
	}
	if old.Equal(coerced) {
		return nil
	}
	if err := writeAbsolute(r, a, coerced, strLen, truncateStrings); err != nil {
		return wrapAt(err, addr)
	}
	return d.notify(Change{Region: RegionTag(a.Area.String()), Address: a.Token(), Old: old, New: coerced})
}

func wrapAt(err error, addr string) error {
	if fe, ok := err.(*fault.Error); ok && fe.Address == "" {
		fe.Address = addr
	}
	return err
}

// readAbsolute reads a typed value from a region through an absolute
// address descriptor, checking that the token's access width matches
// the requested type.
func readAbsolute(r *mem.Region, a mem.Address, t ir.DataType, strLen int) (ir.Value, error) {
	if t == ir.TypeBool {
		if a.Width != mem.WidthBit {
			return ir.Value{}, fault.New(fault.TypeMismatch, "BOOL access needs a bit address")
		}
		b, err := r.Bit(a.Byte, a.Bit)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Bool(b), nil
	}
	if a.Width == mem.WidthBit {
		return ir.Value{}, fault.New(fault.TypeMismatch, "bit address cannot carry %s", t)
	}
	if t == ir.TypeString {
		if a.Width != mem.WidthByte {
			return ir.Value{}, fault.New(fault.TypeMismatch, "STRING access needs a byte address")
		}
		s, err := r.ReadString(a.Byte, strLen)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.String(s), nil
	}
	if t.Width() != a.Width.Bytes() {
		return ir.Value{}, fault.New(fault.TypeMismatch,
			"%s is %d bytes wide but address accesses %d", t, t.Width(), a.Width.Bytes())
	}
	switch t {
	case ir.TypeByte:
		v, err := r.Uint8(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeSInt:
		v, err := r.Int8(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeWord, ir.TypeDate:
		v, err := r.Uint16(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeInt:
		v, err := r.Int16(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeDWord, ir.TypeTOD:
		v, err := r.Uint32(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeDInt, ir.TypeTime:
		v, err := r.Int32(a.Byte)
		return ir.Number(t, float64(v)), err
	case ir.TypeReal:
		v, err := r.Float32(a.Byte)
		return ir.Number(t, float64(v)), err
	}
	return ir.Value{}, fault.New(fault.TypeMismatch, "%s cannot be read from an absolute address", t)
}

// writeAbsolute stores an already-coerced value through an absolute
// address descriptor.
func writeAbsolute(r *mem.Region, a mem.Address, v ir.Value, strLen int, truncate bool) error {
	switch v.Type {
	case ir.TypeBool:
		return r.SetBit(a.Byte, a.Bit, v.B)
	case ir.TypeString:
		_, err := r.WriteString(a.Byte, strLen, v.S, truncate)
		return err
	case ir.TypeByte:
		return r.SetUint8(a.Byte, uint8(v.N))
	case ir.TypeSInt:
		return r.SetInt8(a.Byte, int8(v.N))
	case ir.TypeWord, ir.TypeDate:
		return r.SetUint16(a.Byte, uint16(v.N))
	case ir.TypeInt:
		return r.SetInt16(a.Byte, int16(v.N))
	case ir.TypeDWord, ir.TypeTOD:
		return r.SetUint32(a.Byte, uint32(v.N))
	case ir.TypeDInt, ir.TypeTime:
		return r.SetInt32(a.Byte, int32(v.N))
	case ir.TypeReal:
		return r.SetFloat32(a.Byte, float32(v.N))
	}
	return fault.New(fault.TypeMismatch, "%s cannot be written to an absolute address", v.Type)
}
