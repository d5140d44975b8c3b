package symstore

import (
	"sort"
	"strconv"
	"strings"

	"github.com/plcsim/stcore/pkg/fault"
	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Path tokenization
// ---------------------------------------------------------------------------

type segment struct {
	name    string // identifier segment, or
	index   int    // array index when isIndex
	isIndex bool
}

// tokenizePath splits a dotted/bracketed symbol path into segments.
// Empty segments and unbalanced brackets are rejected.
func tokenizePath(path string) ([]segment, error) {
	var segs []segment
	s := path
	for len(s) > 0 {
		switch s[0] {
		case '.':
			if len(segs) == 0 {
				return nil, fault.At(fault.InvalidSymbolPath, path, "path begins with '.'")
			}
			s = s[1:]
			if s == "" {
				return nil, fault.At(fault.InvalidSymbolPath, path, "path ends with '.'")
			}
			if s[0] == '.' || s[0] == '[' || s[0] == ']' {
				return nil, fault.At(fault.InvalidSymbolPath, path, "empty path segment")
			}
		case '[':
			close := strings.IndexByte(s, ']')
			if close < 0 {
				return nil, fault.At(fault.InvalidSymbolPath, path, "unbalanced '[' in path")
			}
			idxText := s[1:close]
			idx, err := strconv.Atoi(strings.TrimSpace(idxText))
			if err != nil || idx < 0 {
				return nil, fault.At(fault.InvalidSymbolPath, path, "invalid array index %q", idxText)
			}
			if len(segs) == 0 {
				return nil, fault.At(fault.InvalidSymbolPath, path, "path begins with an index")
			}
			segs = append(segs, segment{index: idx, isIndex: true})
			s = s[close+1:]
			if s != "" && s[0] != '.' && s[0] != '[' {
				return nil, fault.At(fault.InvalidSymbolPath, path, "missing '.' after ']'")
			}
		case ']':
			return nil, fault.At(fault.InvalidSymbolPath, path, "unbalanced ']' in path")
		default:
			end := strings.IndexAny(s, ".[]")
			name := s
			if end >= 0 {
				name = s[:end]
			}
			if name == "" || !identPattern.MatchString(name) {
				return nil, fault.At(fault.InvalidSymbolPath, path, "invalid path segment %q", name)
			}
			segs = append(segs, segment{name: name})
			if end < 0 {
				s = ""
			} else {
				s = s[end:]
			}
		}
	}
	if len(segs) == 0 {
		return nil, fault.At(fault.InvalidSymbolPath, path, "empty path")
	}
	return segs, nil
}

// normalize renders segments back into the case-folded lookup key, one
// prefix per returned element (prefix i covers segments [0,i]).
func normalizePrefixes(segs []segment) []string {
	out := make([]string, len(segs))
	var b strings.Builder
	for i, seg := range segs {
		if seg.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.index))
			b.WriteByte(']')
		} else {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(strings.ToLower(seg.name))
		}
		out[i] = b.String()
	}
	return out
}

// ---------------------------------------------------------------------------
// Lookup / read / write
// ---------------------------------------------------------------------------

// Lookup resolves a symbol path, case-insensitively. On a miss it walks
// the path's prefixes to report the deepest known instance or array, so
// the diagnostic distinguishes an unknown instance from an unknown
// symbol from an out-of-range index.
func (st *Store) Lookup(path string) (*Symbol, error) {
	segs, err := tokenizePath(strings.TrimPrefix(path, "#"))
	if err != nil {
		return nil, err
	}
	prefixes := normalizePrefixes(segs)
	full := prefixes[len(prefixes)-1]
	if sym, ok := st.symbols[full]; ok {
		return sym, nil
	}
	return nil, st.missDiagnostic(path, segs, prefixes)
}

// missDiagnostic builds the precise failure for an unresolved path.
func (st *Store) missDiagnostic(path string, segs []segment, prefixes []string) error {
	// Find the deepest prefix that names something we know.
	for i := len(prefixes) - 1; i >= 0; i-- {
		if arr, ok := st.arrays[prefixes[i]]; ok {
			if i+1 < len(segs) && segs[i+1].isIndex && segs[i+1].index >= arr.length {
				return fault.At(fault.OutOfRange, path,
					"index %d outside array %s", segs[i+1].index, arr.path).
					WithDetail("declaredLength", strconv.Itoa(arr.length))
			}
			return fault.At(fault.UnknownSymbol, path, "array %s has no such element", arr.path)
		}
		if inst, ok := st.instances[prefixes[i]]; ok {
			return fault.At(fault.UnknownSymbol, path,
				"instance %s (type %s) has no such symbol", inst.path, inst.typeName)
		}
	}
	return fault.At(fault.UnknownFBInstance, path, "unknown FB instance %q", segs[0].name)
}

// Read returns the symbol descriptor and its current value.
func (st *Store) Read(path string) (*Symbol, ir.Value, error) {
	sym, err := st.Lookup(path)
	if err != nil {
		return nil, ir.Value{}, err
	}
	return sym, sym.value, nil
}

// Write type-checks and coerces v against the symbol's declared type,
// then updates the slot only if the value actually changed. The changed
// flag drives change notification upstream: an unchanged write reports
// false and must not notify.
func (st *Store) Write(path string, v ir.Value, truncateStrings bool) (*Symbol, bool, error) {
	sym, err := st.Lookup(path)
	if err != nil {
		return nil, false, err
	}
	coerced, err := ir.Coerce(sym.Type, sym.StringLen, v, truncateStrings)
	if err != nil {
		if fe, ok := err.(*fault.Error); ok {
			fe.Address = sym.Path
		}
		return nil, false, err
	}
	if sym.value.Equal(coerced) {
		return sym, false, nil
	}
	sym.value = coerced
	return sym, true, nil
}

// ---------------------------------------------------------------------------
// Metadata listing
// ---------------------------------------------------------------------------

// ListFilter narrows and orders a metadata listing.
type ListFilter struct {
	InstancePath string // exact owning-instance match when non-empty
	FBType       string // exact owning-type match when non-empty
	SortByPath   bool   // sort canonical paths; otherwise declaration order
}

// Metadata describes one declared symbol.
type Metadata struct {
	Path         string
	InstancePath string
	FBType       string
	Type         ir.DataType
	StringLen    int
	Default      ir.Value
	Value        ir.Value
}

// List returns metadata for every declared symbol matching the filter.
func (st *Store) List(filter ListFilter) []Metadata {
	var out []Metadata
	for _, sym := range st.order {
		if filter.InstancePath != "" &&
			!strings.EqualFold(sym.InstancePath, filter.InstancePath) {
			continue
		}
		if filter.FBType != "" && !strings.EqualFold(sym.FBType, filter.FBType) {
			continue
		}
		out = append(out, Metadata{
			Path:         sym.Path,
			InstancePath: sym.InstancePath,
			FBType:       sym.FBType,
			Type:         sym.Type,
			StringLen:    sym.StringLen,
			Default:      sym.Default,
			Value:        sym.value,
		})
	}
	if filter.SortByPath {
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	}
	return out
}

// Symbols returns every symbol in declaration order.
func (st *Store) Symbols() []*Symbol {
	out := make([]*Symbol, len(st.order))
	copy(out, st.order)
	return out
}

// Values returns a canonical-path → current-value map, used by
// snapshots.
func (st *Store) Values() map[string]ir.Value {
	out := make(map[string]ir.Value, len(st.order))
	for _, sym := range st.order {
		out[sym.Path] = sym.value
	}
	return out
}

// SetRaw restores a symbol value without coercion checks beyond type
// identity; image loading uses it. The path must resolve.
func (st *Store) SetRaw(path string, v ir.Value) error {
	sym, err := st.Lookup(path)
	if err != nil {
		return err
	}
	coerced, err := ir.Coerce(sym.Type, sym.StringLen, v, true)
	if err != nil {
		return err
	}
	sym.value = coerced
	return nil
}
