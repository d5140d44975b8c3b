package state

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Device image persistence
// ---------------------------------------------------------------------------
// A device image is the full memory state (region bytes plus data-block
// symbol values) in canonical CBOR, prefixed by a fixed magic and a
// format version. Images restore onto a device with the same region
// configuration and symbol schema.

// ImageMagic identifies a device image file.
var ImageMagic = [4]byte{'S', 'T', 'I', 'M'}

// ImageVersion is the current image format version.
const ImageVersion uint32 = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("state: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type imageBody struct {
	Version uint32               `cbor:"version"`
	Inputs  []byte               `cbor:"inputs"`
	Outputs []byte               `cbor:"outputs"`
	Flags   []byte               `cbor:"flags"`
	Symbols map[string]wireValue `cbor:"symbols"`
}

type wireValue struct {
	Type string  `cbor:"t"`
	B    bool    `cbor:"b,omitempty"`
	I    int64   `cbor:"i,omitempty"`
	N    float64 `cbor:"n,omitempty"`
	S    string  `cbor:"s,omitempty"`
}

func toWire(v ir.Value) wireValue {
	w := wireValue{Type: v.Type.String()}
	switch v.Type {
	case ir.TypeBool:
		w.B = v.B
	case ir.TypeString:
		w.S = v.S
	case ir.TypeLInt:
		w.I = v.I
	default:
		w.N = v.N
	}
	return w
}

func fromWire(w wireValue) (ir.Value, error) {
	t, ok := ir.ParseDataType(w.Type)
	if !ok {
		return ir.Value{}, fmt.Errorf("image carries unknown data type %q", w.Type)
	}
	switch t {
	case ir.TypeBool:
		return ir.Bool(w.B), nil
	case ir.TypeString:
		return ir.String(w.S), nil
	case ir.TypeLInt:
		return ir.LInt(w.I), nil
	}
	return ir.Number(t, w.N), nil
}

// WriteImage serializes the device state to w.
func (d *Device) WriteImage(w io.Writer) error {
	snap := d.Snapshot()
	body := imageBody{
		Version: ImageVersion,
		Inputs:  snap.Inputs,
		Outputs: snap.Outputs,
		Flags:   snap.Flags,
		Symbols: make(map[string]wireValue, len(snap.DBSymbols)),
	}
	for path, v := range snap.DBSymbols {
		body.Symbols[path] = toWire(v)
	}
	if _, err := w.Write(ImageMagic[:]); err != nil {
		return fmt.Errorf("write image magic: %w", err)
	}
	data, err := cborEncMode.Marshal(&body)
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write image body: %w", err)
	}
	return nil
}

// ReadImage restores device state from r. The image must match the
// device's region sizes; symbol values restore through the store so the
// schema still applies.
func (d *Device) ReadImage(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read image magic: %w", err)
	}
	if magic != ImageMagic {
		return fmt.Errorf("not a device image (magic %q)", magic[:])
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read image body: %w", err)
	}
	var body imageBody
	if err := cbor.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if body.Version != ImageVersion {
		return fmt.Errorf("unsupported image version %d", body.Version)
	}
	if err := d.loadRegions(body); err != nil {
		return err
	}
	if len(body.Symbols) > 0 && d.db == nil {
		return fmt.Errorf("image carries %d symbols but device has no data blocks", len(body.Symbols))
	}
	for path, wv := range body.Symbols {
		v, err := fromWire(wv)
		if err != nil {
			return err
		}
		if err := d.db.SetRaw(path, v); err != nil {
			return fmt.Errorf("restore symbol %s: %w", path, err)
		}
	}
	return nil
}

func (d *Device) loadRegions(body imageBody) error {
	if d.inputs != nil {
		if err := d.inputs.LoadBytes(body.Inputs); err != nil {
			return err
		}
	}
	if d.outputs != nil {
		if err := d.outputs.LoadBytes(body.Outputs); err != nil {
			return err
		}
	}
	if d.flags != nil {
		if err := d.flags.LoadBytes(body.Flags); err != nil {
			return err
		}
	}
	return nil
}
