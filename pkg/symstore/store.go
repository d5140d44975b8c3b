// Package symstore implements the optimized data-block symbol store:
// FB type schemas expanded into a flat, canonically-pathed symbol table
// with defaults. Construction is all-or-nothing; a misconfigured schema
// (duplicate names, unknown or cyclic type references, bad array bounds)
// aborts construction rather than yielding a degraded store.
package symstore

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/plcsim/stcore/pkg/fault"
	"github.com/plcsim/stcore/pkg/ir"
	"github.com/plcsim/stcore/pkg/mem"
	"github.com/plcsim/stcore/pkg/schema"
)

// identPattern is the identifier rule for field and instance names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dbPrefixPattern matches the reserved absolute data-block addressing
// prefix (DB<number>); instance names may not begin with it, so that
// symbolic paths stay distinguishable from absolute DB notation.
var dbPrefixPattern = regexp.MustCompile(`^[Dd][Bb][0-9]`)

// Symbol is one expanded scalar slot in the store.
type Symbol struct {
	Path         string // canonical, declaration-cased
	NormPath     string // case-folded lookup key
	InstancePath string // owning FB instance path
	FBType       string // owning FB type name
	Type         ir.DataType
	StringLen    int // declared STRING length, 0 otherwise
	Default      ir.Value

	value ir.Value
}

// Value returns the symbol's current value.
func (s *Symbol) Value() ir.Value { return s.value }

type instanceInfo struct {
	path     string // canonical
	typeName string
}

type arrayInfo struct {
	path   string // canonical
	length int
}

// Store is the populated symbol table.
type Store struct {
	symbols   map[string]*Symbol
	order     []*Symbol
	instances map[string]instanceInfo
	arrays    map[string]arrayInfo
}

// ---------------------------------------------------------------------------
// Construction / schema expansion
// ---------------------------------------------------------------------------

// New expands every instance binding against the registry. Any
// configuration problem fails construction entirely.
func New(reg *schema.Registry, instances []schema.InstanceBinding) (*Store, error) {
	st := &Store{
		symbols:   make(map[string]*Symbol),
		instances: make(map[string]instanceInfo),
		arrays:    make(map[string]arrayInfo),
	}
	for _, inst := range instances {
		if !identPattern.MatchString(inst.Name) {
			return nil, fault.New(fault.InvalidConfig, "invalid instance name %q", inst.Name)
		}
		if dbPrefixPattern.MatchString(inst.Name) {
			return nil, fault.New(fault.InvalidConfig,
				"instance name %q collides with absolute data-block addressing", inst.Name)
		}
		norm := strings.ToLower(inst.Name)
		if _, dup := st.instances[norm]; dup {
			return nil, fault.New(fault.InvalidConfig, "duplicate instance name %q", inst.Name)
		}
		st.instances[norm] = instanceInfo{path: inst.Name, typeName: inst.Type}
		expanding := map[string]bool{}
		if err := st.expandType(reg, inst.Type, inst.Name, norm, expanding); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// expandType expands one FB type under the instance path. expanding is
// the set of types currently on the recursion path; re-entering one of
// them means the schema references itself.
func (st *Store) expandType(reg *schema.Registry, typeName, path, norm string, expanding map[string]bool) error {
	t := reg.Lookup(typeName)
	if t == nil {
		return fault.New(fault.InvalidConfig, "unknown FB type %q (instance %s)", typeName, path)
	}
	if expanding[typeName] {
		return fault.New(fault.InvalidConfig, "cyclic type reference through %q (at %s)", typeName, path)
	}
	expanding[typeName] = true
	defer delete(expanding, typeName)

	scope := map[string]bool{}
	for _, f := range t.Fields {
		if !identPattern.MatchString(f.Name) {
			return fault.New(fault.InvalidConfig, "type %s: invalid field name %q", typeName, f.Name)
		}
		fn := strings.ToLower(f.Name)
		if scope[fn] {
			return fault.New(fault.InvalidConfig, "type %s: duplicate field name %q", typeName, f.Name)
		}
		scope[fn] = true
		if err := st.expandField(reg, typeName, f, path+"."+f.Name, norm+"."+fn, path, expanding); err != nil {
			return err
		}
	}
	return nil
}

// expandField registers one field (or, for aggregates, recurses) at the
// given canonical/normalized path. instPath is the owning FB instance.
func (st *Store) expandField(reg *schema.Registry, ownerType string, f schema.Field, path, norm, instPath string, expanding map[string]bool) error {
	switch f.Kind {
	case schema.FieldScalar:
		return st.addScalar(ownerType, f, path, norm, instPath)

	case schema.FieldStruct:
		scope := map[string]bool{}
		for _, sub := range f.Fields {
			if !identPattern.MatchString(sub.Name) {
				return fault.New(fault.InvalidConfig, "type %s: invalid field name %q", ownerType, sub.Name)
			}
			sn := strings.ToLower(sub.Name)
			if scope[sn] {
				return fault.New(fault.InvalidConfig, "type %s: duplicate field name %q in struct %s", ownerType, sub.Name, f.Name)
			}
			scope[sn] = true
			if err := st.expandField(reg, ownerType, sub, path+"."+sub.Name, norm+"."+sn, instPath, expanding); err != nil {
				return err
			}
		}
		return nil

	case schema.FieldArray:
		if f.Length < 0 {
			return fault.New(fault.InvalidConfig, "type %s: array %s has negative length %d", ownerType, f.Name, f.Length)
		}
		if f.Element == nil {
			return fault.New(fault.InvalidConfig, "type %s: array %s has no element schema", ownerType, f.Name)
		}
		st.arrays[norm] = arrayInfo{path: path, length: f.Length}
		for i := 0; i < f.Length; i++ {
			idx := "[" + strconv.Itoa(i) + "]"
			elem := *f.Element
			elem.Name = f.Name // element slots inherit the array's name
			if err := st.expandElement(reg, ownerType, elem, path+idx, norm+idx, instPath, expanding); err != nil {
				return err
			}
		}
		return nil

	case schema.FieldFB:
		st.instances[norm] = instanceInfo{path: path, typeName: f.TypeName}
		return st.expandType(reg, f.TypeName, path, norm, expanding)
	}
	return fault.New(fault.InvalidConfig, "type %s: field %s has unknown kind", ownerType, f.Name)
}

// expandElement expands one array element slot. Unlike expandField it
// does not re-append the field name, since the index suffix is already
// part of the path.
func (st *Store) expandElement(reg *schema.Registry, ownerType string, f schema.Field, path, norm, instPath string, expanding map[string]bool) error {
	switch f.Kind {
	case schema.FieldScalar:
		return st.addScalar(ownerType, f, path, norm, instPath)
	case schema.FieldStruct, schema.FieldArray:
		return st.expandField(reg, ownerType, f, path, norm, instPath, expanding)
	case schema.FieldFB:
		st.instances[norm] = instanceInfo{path: path, typeName: f.TypeName}
		return st.expandType(reg, f.TypeName, path, norm, expanding)
	}
	return fault.New(fault.InvalidConfig, "type %s: array element has unknown kind", ownerType)
}

func (st *Store) addScalar(ownerType string, f schema.Field, path, norm, instPath string) error {
	dt, ok := ir.ParseDataType(strings.ToUpper(f.DataType))
	if !ok {
		return fault.New(fault.InvalidConfig, "type %s: field %s has unsupported data type %q", ownerType, f.Name, f.DataType)
	}
	strLen := 0
	if dt == ir.TypeString {
		strLen = f.StringLength
		if strLen <= 0 {
			strLen = mem.DefaultStringLen
		}
	}
	def := ir.ZeroValue(dt, strLen)
	if f.Default != "" {
		v, err := ir.ParseConstant(dt, strLen, f.Default)
		if err != nil {
			return fault.New(fault.InvalidConfig, "type %s: field %s default: %v", ownerType, f.Name, err)
		}
		def = v
	}
	if _, dup := st.symbols[norm]; dup {
		return fault.New(fault.InvalidConfig, "duplicate symbol path %q", path)
	}
	sym := &Symbol{
		Path:         path,
		NormPath:     norm,
		InstancePath: instPath,
		FBType:       ownerType,
		Type:         dt,
		StringLen:    strLen,
		Default:      def,
		value:        def,
	}
	st.symbols[norm] = sym
	st.order = append(st.order, sym)
	return nil
}
