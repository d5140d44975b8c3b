// Package manifest handles device.toml device configuration.
package manifest

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a device.toml configuration.
type Manifest struct {
	Device    Device     `toml:"device"`
	Memory    Memory     `toml:"memory"`
	Execution Execution  `toml:"execution"`
	Schema    Schema     `toml:"schema"`
	Instances []Instance `toml:"instance"`

	// Dir is the directory containing the device.toml file (set at load time).
	Dir string `toml:"-"`
}

// Device contains device metadata.
type Device struct {
	Name string `toml:"name"`
}

// Memory sizes the three absolute areas and fixes their byte order.
type Memory struct {
	Inputs    int    `toml:"inputs"`
	Outputs   int    `toml:"outputs"`
	Flags     int    `toml:"flags"`
	ByteOrder string `toml:"byte-order"` // "big" (default) or "little"
}

// Order resolves the configured byte order.
func (m Memory) Order() (binary.ByteOrder, error) {
	switch m.ByteOrder {
	case "", "big":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", m.ByteOrder)
}

// Execution configures scan behavior.
type Execution struct {
	MaxLoopIterations int  `toml:"max-loop-iterations"`
	Trace             bool `toml:"trace"`
}

// Schema points at the FB type schema file.
type Schema struct {
	File string `toml:"file"`
}

// Instance declares one data-block instance binding.
type Instance struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// Load parses a device.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "device.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir
	return &m, nil
}

// FindAndLoad walks up from dir looking for a device.toml.
func FindAndLoad(dir string) (*Manifest, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "device.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no device.toml found above %s", dir)
		}
		dir = parent
	}
}

// SchemaPath resolves the schema file relative to the manifest dir.
func (m *Manifest) SchemaPath() string {
	if m.Schema.File == "" {
		return ""
	}
	if filepath.IsAbs(m.Schema.File) {
		return m.Schema.File
	}
	return filepath.Join(m.Dir, m.Schema.File)
}
