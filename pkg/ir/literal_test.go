package ir

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Numeric literals
// ---------------------------------------------------------------------------

func TestParseNumberWidthByMagnitude(t *testing.T) {
	tests := []struct {
		text string
		typ  DataType
		n    float64
	}{
		{"0", TypeInt, 0},
		{"42", TypeInt, 42},
		{"-1", TypeInt, -1},
		{"32767", TypeInt, 32767},
		{"32768", TypeDInt, 32768},
		{"-32769", TypeDInt, -32769},
		{"2147483647", TypeDInt, 2147483647},
		{"1_000", TypeInt, 1000},
		{"16#FF", TypeInt, 255},
		{"16#7FFF_FFFF", TypeDInt, 2147483647},
		{"8#17", TypeInt, 15},
		{"2#1010", TypeInt, 10},
	}
	for _, tt := range tests {
		v, ok := parseNumber(tt.text, false)
		if !ok {
			t.Errorf("parseNumber(%q) failed", tt.text)
			continue
		}
		if v.Type != tt.typ || v.N != tt.n {
			t.Errorf("parseNumber(%q) = %s %v, want %s %v", tt.text, v.Type, v.N, tt.typ, tt.n)
		}
	}
}

func TestParseNumberWide(t *testing.T) {
	v, ok := parseNumber("2147483648", false)
	if !ok || v.Type != TypeLInt || v.I != 2147483648 {
		t.Errorf("parseNumber(2147483648) = %+v, want LINT path", v)
	}
	// forceWide keeps even small literals on the int64 path.
	v, ok = parseNumber("5", true)
	if !ok || v.Type != TypeLInt || v.I != 5 {
		t.Errorf("parseNumber(5, wide) = %+v, want LINT 5", v)
	}
}

func TestParseNumberFloats(t *testing.T) {
	v, ok := parseNumber("3.25", false)
	if !ok || v.Type != TypeReal || v.N != 3.25 {
		t.Errorf("parseNumber(3.25) = %+v, want REAL 3.25", v)
	}
	v, ok = parseNumber("1.5e3", false)
	if !ok || v.Type != TypeLReal || v.N != 1500 {
		t.Errorf("parseNumber(1.5e3) = %+v, want LREAL 1500", v)
	}
	v, ok = parseNumber("2E2", false)
	if !ok || v.Type != TypeLReal || v.N != 200 {
		t.Errorf("parseNumber(2E2) = %+v, want LREAL 200", v)
	}
}

func TestParseNumberRejects(t *testing.T) {
	for _, text := range []string{"", "abc", "16#", "1.2.3", "2#102"} {
		if _, ok := parseNumber(text, false); ok {
			t.Errorf("parseNumber(%q) accepted, want reject", text)
		}
	}
}

// ---------------------------------------------------------------------------
// Duration, date and time-of-day literals
// ---------------------------------------------------------------------------

func TestParseTimeLiteral(t *testing.T) {
	tests := []struct {
		text string
		ms   float64
	}{
		{"T#10ms", 10},
		{"T#1s", 1000},
		{"TIME#2m30s", 150_000},
		{"t#1h", 3_600_000},
		{"T#1d2h", 93_600_000},
		{"T#-500ms", -500},
		{"T#1_000ms", 1000},
	}
	for _, tt := range tests {
		v, ok := parseTimeLiteral(tt.text)
		if !ok {
			t.Errorf("parseTimeLiteral(%q) failed", tt.text)
			continue
		}
		if v.Type != TypeTime || v.N != tt.ms {
			t.Errorf("parseTimeLiteral(%q) = %s %v, want TIME %v", tt.text, v.Type, v.N, tt.ms)
		}
	}
	for _, text := range []string{"T#", "T#5", "T#x", "10ms"} {
		if _, ok := parseTimeLiteral(text); ok {
			t.Errorf("parseTimeLiteral(%q) accepted, want reject", text)
		}
	}
}

func TestParseDateLiteral(t *testing.T) {
	// The epoch itself is day zero.
	v, ok := parseDateLiteral("DATE#1990-01-01")
	if !ok || v.Type != TypeDate || v.N != 0 {
		t.Errorf("DATE#1990-01-01 = %+v, want DATE 0", v)
	}
	v, ok = parseDateLiteral("D#1990-01-02")
	if !ok || v.N != 1 {
		t.Errorf("D#1990-01-02 = %+v, want day 1", v)
	}
	v, ok = parseDateLiteral("D#1991-01-01")
	if !ok || v.N != 365 {
		t.Errorf("D#1991-01-01 = %+v, want day 365", v)
	}
	if _, ok := parseDateLiteral("D#1990-13-01"); ok {
		t.Error("D#1990-13-01 accepted, want reject")
	}
}

func TestParseTodLiteral(t *testing.T) {
	v, ok := parseTodLiteral("TOD#00:00:00")
	if !ok || v.Type != TypeTOD || v.N != 0 {
		t.Errorf("TOD#00:00:00 = %+v, want TOD 0", v)
	}
	v, ok = parseTodLiteral("TIME_OF_DAY#12:30:05.250")
	if !ok || v.N != float64((12*3600+30*60+5)*1000+250) {
		t.Errorf("TOD noon = %+v", v)
	}
	v, ok = parseTodLiteral("TOD#23:59:59")
	if !ok || v.N != float64((23*3600+59*60+59)*1000) {
		t.Errorf("TOD end of day = %+v", v)
	}
	for _, text := range []string{"TOD#24:00:00", "TOD#12:60:00", "TOD#12:00", "TOD#x"} {
		if _, ok := parseTodLiteral(text); ok {
			t.Errorf("parseTodLiteral(%q) accepted, want reject", text)
		}
	}
}

// ---------------------------------------------------------------------------
// String and boolean literals
// ---------------------------------------------------------------------------

func TestParseStringLiteral(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"'hello'", "hello"},
		{`"hello"`, "hello"},
		{"''", ""},
		{"'it''s'", "it's"},
		{"'a$$b'", "a$b"},
		{"'line$Nnext'", "line\nnext"},
		{"'tab$There'", "tab\there"},
		{"'cr$R'", "cr\r"},
		{`'q$' and $"'`, `q' and "`},
	}
	for _, tt := range tests {
		got, ok := parseStringLiteral(tt.text)
		if !ok {
			t.Errorf("parseStringLiteral(%q) failed", tt.text)
			continue
		}
		if got != tt.want {
			t.Errorf("parseStringLiteral(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
	for _, text := range []string{"", "'", "'unterminated", "'bad$Xescape'", "'lone'quote'"} {
		if _, ok := parseStringLiteral(text); ok {
			t.Errorf("parseStringLiteral(%q) accepted, want reject", text)
		}
	}
}

func TestParseBoolLiteral(t *testing.T) {
	v, ok := parseBoolLiteral("TRUE")
	if !ok || !v.B {
		t.Errorf("TRUE = %+v", v)
	}
	v, ok = parseBoolLiteral("false")
	if !ok || v.B {
		t.Errorf("false = %+v", v)
	}
	if _, ok := parseBoolLiteral("yes"); ok {
		t.Error("yes accepted, want reject")
	}
}
