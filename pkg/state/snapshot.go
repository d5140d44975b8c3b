package state

import (
	"sort"

	"github.com/goccy/go-json"

	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Snapshot and diff
// ---------------------------------------------------------------------------

// Snapshot is a plain, serializable copy of the full device state.
type Snapshot struct {
	Inputs    []byte              `json:"inputs"`
	Outputs   []byte              `json:"outputs"`
	Flags     []byte              `json:"flags"`
	DBSymbols map[string]ir.Value `json:"-"`
}

// Snapshot captures the current device state.
func (d *Device) Snapshot() Snapshot {
	s := Snapshot{}
	if d.inputs != nil {
		s.Inputs = d.inputs.Bytes()
	}
	if d.outputs != nil {
		s.Outputs = d.outputs.Bytes()
	}
	if d.flags != nil {
		s.Flags = d.flags.Bytes()
	}
	if d.db != nil {
		s.DBSymbols = d.db.Values()
	}
	return s
}

// MarshalJSON renders the snapshot with symbol values as native JSON
// scalars (bool, number or string), keyed by canonical path.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	symbols := make(map[string]interface{}, len(s.DBSymbols))
	for path, v := range s.DBSymbols {
		symbols[path] = jsonValue(v)
	}
	return json.Marshal(struct {
		Inputs    []byte                 `json:"inputs"`
		Outputs   []byte                 `json:"outputs"`
		Flags     []byte                 `json:"flags"`
		DBSymbols map[string]interface{} `json:"dbSymbols"`
	}{s.Inputs, s.Outputs, s.Flags, symbols})
}

func jsonValue(v ir.Value) interface{} {
	switch v.Type {
	case ir.TypeBool:
		return v.B
	case ir.TypeString:
		return v.S
	case ir.TypeLInt:
		return v.I
	}
	return v.N
}

// ByteDelta is one changed byte in an absolute region.
type ByteDelta struct {
	Offset int  `json:"offset"`
	Old    byte `json:"old"`
	New    byte `json:"new"`
}

// SymbolDelta is one changed data-block symbol.
type SymbolDelta struct {
	Path string   `json:"path"`
	Old  ir.Value `json:"-"`
	New  ir.Value `json:"-"`
}

// Diff is the per-byte / per-symbol difference between two snapshots.
type Diff struct {
	Inputs    []ByteDelta
	Outputs   []ByteDelta
	Flags     []ByteDelta
	DBSymbols []SymbolDelta
}

// Empty reports whether the two snapshots were identical.
func (d Diff) Empty() bool {
	return len(d.Inputs) == 0 && len(d.Outputs) == 0 && len(d.Flags) == 0 && len(d.DBSymbols) == 0
}

// DiffSnapshots compares two snapshots taken from the same device.
func DiffSnapshots(before, after Snapshot) Diff {
	d := Diff{
		Inputs:  diffBytes(before.Inputs, after.Inputs),
		Outputs: diffBytes(before.Outputs, after.Outputs),
		Flags:   diffBytes(before.Flags, after.Flags),
	}
	paths := make([]string, 0, len(after.DBSymbols))
	for path := range after.DBSymbols {
		paths = append(paths, path)
	}
	// Deterministic order for stable output.
	sort.Strings(paths)
	for _, path := range paths {
		oldV, ok := before.DBSymbols[path]
		newV := after.DBSymbols[path]
		if !ok || !oldV.Equal(newV) {
			d.DBSymbols = append(d.DBSymbols, SymbolDelta{Path: path, Old: oldV, New: newV})
		}
	}
	return d
}

func diffBytes(before, after []byte) []ByteDelta {
	var out []ByteDelta
	n := len(after)
	if len(before) < n {
		n = len(before)
	}
	for i := 0; i < n; i++ {
		if before[i] != after[i] {
			out = append(out, ByteDelta{Offset: i, Old: before[i], New: after[i]})
		}
	}
	return out
}
