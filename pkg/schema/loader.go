package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML registry loader
// ---------------------------------------------------------------------------
// Schema files list types with their fields; field kind is inferred from
// which keys are present, mirroring how the analysis component tags its
// output:
//
//	types:
//	  MotorCtl:
//	    - {name: speed, type: INT, default: "0"}
//	    - {name: label, type: STRING, stringLength: 16}
//	    - name: alarms
//	      length: 4
//	      element: {type: BOOL}
//	    - name: aux
//	      fb: PumpCtl

type yamlDoc struct {
	Types     map[string][]yamlField `yaml:"types"`
	Instances []yamlInstance         `yaml:"instances"`
}

type yamlInstance struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type yamlField struct {
	Name         string      `yaml:"name"`
	Type         string      `yaml:"type"`
	Default      string      `yaml:"default"`
	StringLength int         `yaml:"stringLength"`
	Fields       []yamlField `yaml:"fields"`
	Length       *int        `yaml:"length"`
	Element      *yamlField  `yaml:"element"`
	FB           string      `yaml:"fb"`
}

// LoadFile reads a YAML schema document from path.
func LoadFile(path string) (*Registry, []InstanceBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read schema %s: %w", path, err)
	}
	return Load(data)
}

// Load parses a YAML schema document.
func Load(data []byte) (*Registry, []InstanceBinding, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse schema: %w", err)
	}
	reg := &Registry{Types: make(map[string]*Type, len(doc.Types))}
	for name, fields := range doc.Types {
		t := &Type{Name: name}
		for _, f := range fields {
			field, err := convertField(name, f)
			if err != nil {
				return nil, nil, err
			}
			t.Fields = append(t.Fields, field)
		}
		reg.Types[name] = t
	}
	var instances []InstanceBinding
	for _, inst := range doc.Instances {
		instances = append(instances, InstanceBinding{Name: inst.Name, Type: inst.Type})
	}
	return reg, instances, nil
}

func convertField(typeName string, f yamlField) (Field, error) {
	switch {
	case f.FB != "":
		return Field{Name: f.Name, Kind: FieldFB, TypeName: f.FB}, nil
	case f.Length != nil || f.Element != nil:
		if f.Length == nil || f.Element == nil {
			return Field{}, fmt.Errorf("type %s field %s: array needs both length and element", typeName, f.Name)
		}
		elem, err := convertField(typeName, *f.Element)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: f.Name, Kind: FieldArray, Length: *f.Length, Element: &elem}, nil
	case len(f.Fields) > 0:
		out := Field{Name: f.Name, Kind: FieldStruct}
		for _, sub := range f.Fields {
			sf, err := convertField(typeName, sub)
			if err != nil {
				return Field{}, err
			}
			out.Fields = append(out.Fields, sf)
		}
		return out, nil
	case f.Type != "":
		return Field{
			Name:         f.Name,
			Kind:         FieldScalar,
			DataType:     f.Type,
			Default:      f.Default,
			StringLength: f.StringLength,
		}, nil
	}
	return Field{}, fmt.Errorf("type %s field %s: cannot determine field kind", typeName, f.Name)
}
