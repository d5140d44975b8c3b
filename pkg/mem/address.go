// Package mem implements the byte/bit-addressable controller memory:
// fixed-size typed regions for the absolute-addressed areas and the
// resolver for both address grammars (absolute I/Q/M notation and
// symbolic data-block paths).
package mem

import (
	"regexp"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Address grammars
// ---------------------------------------------------------------------------

// AreaID identifies one of the three absolute-addressed regions.
type AreaID byte

const (
	AreaInput  AreaID = 'I'
	AreaOutput AreaID = 'Q'
	AreaFlag   AreaID = 'M'
)

func (a AreaID) String() string { return string(byte(a)) }

// Width is the access width implied by an absolute address token.
type Width int

const (
	WidthBit Width = iota
	WidthByte
	WidthWord
	WidthDWord
)

// Bytes returns the number of bytes the width spans (0 for a bit).
func (w Width) Bytes() int {
	switch w {
	case WidthByte:
		return 1
	case WidthWord:
		return 2
	case WidthDWord:
		return 4
	}
	return 0
}

// AddressKind tags a parsed address as absolute or symbolic.
type AddressKind int

const (
	KindAbsolute AddressKind = iota
	KindSymbolic
)

// Address is a validated address descriptor. Absolute addresses carry
// area/width/byte/bit; symbolic addresses carry the data-block path with
// any leading sigil already stripped.
type Address struct {
	Kind  AddressKind
	Area  AreaID
	Width Width
	Byte  int
	Bit   int
	Path  string
}

// Token renders the canonical token for an absolute address.
func (a Address) Token() string {
	if a.Kind == KindSymbolic {
		return a.Path
	}
	switch a.Width {
	case WidthBit:
		return string(byte(a.Area)) + strconv.Itoa(a.Byte) + "." + strconv.Itoa(a.Bit)
	case WidthByte:
		return string(byte(a.Area)) + "B" + strconv.Itoa(a.Byte)
	case WidthWord:
		return string(byte(a.Area)) + "W" + strconv.Itoa(a.Byte)
	}
	return string(byte(a.Area)) + "D" + strconv.Itoa(a.Byte)
}

var (
	bitPattern   = regexp.MustCompile(`^([IQM])([0-9]+)\.([0-7])$`)
	bytePattern  = regexp.MustCompile(`^([IQM])B([0-9]+)$`)
	wordPattern  = regexp.MustCompile(`^([IQM])W([0-9]+)$`)
	dwordPattern = regexp.MustCompile(`^([IQM])D([0-9]+)$`)
)

// ParseAbsolute parses an absolute I/Q/M address token. Alignment is not
// checked here; the typed region accessors enforce it so that a
// misaligned token surfaces as an alignment fault rather than being
// silently reclassified.
func ParseAbsolute(token string) (Address, bool) {
	if m := bitPattern.FindStringSubmatch(token); m != nil {
		b, _ := strconv.Atoi(m[2])
		bit, _ := strconv.Atoi(m[3])
		return Address{Kind: KindAbsolute, Area: AreaID(m[1][0]), Width: WidthBit, Byte: b, Bit: bit}, true
	}
	if m := bytePattern.FindStringSubmatch(token); m != nil {
		b, _ := strconv.Atoi(m[2])
		return Address{Kind: KindAbsolute, Area: AreaID(m[1][0]), Width: WidthByte, Byte: b}, true
	}
	if m := wordPattern.FindStringSubmatch(token); m != nil {
		b, _ := strconv.Atoi(m[2])
		return Address{Kind: KindAbsolute, Area: AreaID(m[1][0]), Width: WidthWord, Byte: b}, true
	}
	if m := dwordPattern.FindStringSubmatch(token); m != nil {
		b, _ := strconv.Atoi(m[2])
		return Address{Kind: KindAbsolute, Area: AreaID(m[1][0]), Width: WidthDWord, Byte: b}, true
	}
	return Address{}, false
}

// Parse resolves an address string against both grammars: absolute
// tokens first, then symbolic data-block paths. A leading '#' sigil
// (used inside function-block bodies) is stripped before symbolic
// classification. Parse never panics on malformed input; ok is false
// when the string fits neither grammar.
func Parse(s string) (Address, bool) {
	if a, ok := ParseAbsolute(s); ok {
		return a, true
	}
	path := strings.TrimPrefix(s, "#")
	if !validSymbolPathStart(path) {
		return Address{}, false
	}
	return Address{Kind: KindSymbolic, Path: path}, true
}

// validSymbolPathStart checks that the path begins with an identifier
// character. Full segment validation happens at lookup time in the
// symbol store, where a precise diagnostic can name the deepest known
// prefix.
func validSymbolPathStart(path string) bool {
	if path == "" {
		return false
	}
	c := path[0]
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
