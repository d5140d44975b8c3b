// Package schema defines the FB type schema contract consumed by the
// symbol store. The registry is produced by the external schema-analysis
// component; this package only fixes its shape and offers a YAML loader
// for embedders that keep schemas in files.
package schema

// FieldKind enumerates the four field shapes a type may declare.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldStruct
	FieldArray
	FieldFB
)

// Field is one declared field of an FB type. Exactly the members for its
// Kind are meaningful: scalar uses DataType/Default/StringLength, struct
// uses Fields, array uses Length/Element, fb uses TypeName.
type Field struct {
	Name string
	Kind FieldKind

	// scalar
	DataType     string
	Default      string // literal text; empty means the type's zero value
	StringLength int

	// struct
	Fields []Field

	// array
	Length  int
	Element *Field

	// fb instance
	TypeName string
}

// Type is one FB type definition: a name plus its ordered field list.
type Type struct {
	Name   string
	Fields []Field
}

// Registry maps type names to their definitions.
type Registry struct {
	Types map[string]*Type
}

// NewRegistry builds a registry from a list of type definitions.
func NewRegistry(types ...*Type) *Registry {
	r := &Registry{Types: make(map[string]*Type, len(types))}
	for _, t := range types {
		r.Types[t.Name] = t
	}
	return r
}

// Lookup returns the type definition for name, or nil.
func (r *Registry) Lookup(name string) *Type {
	if r == nil {
		return nil
	}
	return r.Types[name]
}

// InstanceBinding declares one data-block instance of an FB type.
type InstanceBinding struct {
	Name string
	Type string
}
