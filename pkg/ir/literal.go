package ir

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Literal parsing
// ---------------------------------------------------------------------------
// Constant initializers and expression literals arrive as raw token text.
// Parsing here is strict: malformed text reports failure to the builder,
// which turns it into a BuildError at the token's range.

// dateEpoch is the fixed DATE epoch; DATE values count whole days from
// this day.
var dateEpoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// parseNumber parses an integer or floating-point literal. Integer width
// selection is by magnitude: INT when the value fits 16 bits, DINT when
// it fits 32, LINT otherwise. forceWide selects LINT regardless (used
// for CASE range bounds, which compare on the 64-bit path). Exponent
// notation forces LREAL; any other decimal point yields REAL.
func parseNumber(text string, forceWide bool) (Value, bool) {
	t := strings.ReplaceAll(text, "_", "")
	if t == "" {
		return Value{}, false
	}
	if strings.ContainsAny(t, "eE") && !strings.HasPrefix(t, "16#") {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return Value{}, false
		}
		return Number(TypeLReal, f), true
	}
	if strings.Contains(t, ".") {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return Value{}, false
		}
		return Number(TypeReal, f), true
	}
	base := 10
	digits := t
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}
	switch {
	case strings.HasPrefix(digits, "16#"):
		base, digits = 16, digits[3:]
	case strings.HasPrefix(digits, "8#"):
		base, digits = 8, digits[2:]
	case strings.HasPrefix(digits, "2#"):
		base, digits = 2, digits[2:]
	}
	i, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return Value{}, false
	}
	if neg {
		i = -i
	}
	if forceWide {
		return LInt(i), true
	}
	switch {
	case i >= math.MinInt16 && i <= math.MaxInt16:
		return Number(TypeInt, float64(i)), true
	case i >= math.MinInt32 && i <= math.MaxInt32:
		return Number(TypeDInt, float64(i)), true
	}
	return LInt(i), true
}

// parseDuration parses a TIME literal body (the part after TIME# or T#)
// into signed milliseconds. The body is a sequence of <n><unit> segments
// with units d, h, m, s, ms; segments sum, and a single leading sign
// applies to the whole literal.
func parseDuration(body string) (int64, bool) {
	s := strings.ToLower(strings.ReplaceAll(body, "_", ""))
	if s == "" {
		return 0, false
	}
	sign := int64(1)
	if s[0] == '-' {
		sign = -1
		s = s[1:]
	} else if s[0] == '+' {
		s = s[1:]
	}
	var total int64
	seen := false
	for len(s) > 0 {
		j := 0
		for j < len(s) && (s[j] >= '0' && s[j] <= '9') {
			j++
		}
		if j == 0 {
			return 0, false
		}
		n, err := strconv.ParseInt(s[:j], 10, 64)
		if err != nil {
			return 0, false
		}
		s = s[j:]
		var unitMs int64
		switch {
		case strings.HasPrefix(s, "ms"):
			unitMs, s = 1, s[2:]
		case strings.HasPrefix(s, "d"):
			unitMs, s = 86_400_000, s[1:]
		case strings.HasPrefix(s, "h"):
			unitMs, s = 3_600_000, s[1:]
		case strings.HasPrefix(s, "m"):
			unitMs, s = 60_000, s[1:]
		case strings.HasPrefix(s, "s"):
			unitMs, s = 1_000, s[1:]
		default:
			return 0, false
		}
		total += n * unitMs
		seen = true
	}
	if !seen {
		return 0, false
	}
	return sign * total, true
}

// parseTimeLiteral parses a full TIME literal (TIME#... or T#...).
func parseTimeLiteral(text string) (Value, bool) {
	body, ok := literalBody(text, "TIME#", "T#")
	if !ok {
		return Value{}, false
	}
	ms, ok := parseDuration(body)
	if !ok {
		return Value{}, false
	}
	return Number(TypeTime, float64(ms)), true
}

// parseDateLiteral parses DATE#yyyy-mm-dd (or D#...) into a day offset
// from the fixed epoch.
func parseDateLiteral(text string) (Value, bool) {
	body, ok := literalBody(text, "DATE#", "D#")
	if !ok {
		return Value{}, false
	}
	d, err := time.ParseInLocation("2006-1-2", body, time.UTC)
	if err != nil {
		return Value{}, false
	}
	days := int64(d.Sub(dateEpoch).Hours() / 24)
	return Number(TypeDate, float64(days)), true
}

// parseTodLiteral parses TOD#hh:mm:ss[.fff] (or TIME_OF_DAY#...) into
// milliseconds since midnight.
func parseTodLiteral(text string) (Value, bool) {
	body, ok := literalBody(text, "TIME_OF_DAY#", "TOD#")
	if !ok {
		return Value{}, false
	}
	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return Value{}, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	secPart := parts[2]
	frac := 0
	if dot := strings.IndexByte(secPart, '.'); dot >= 0 {
		f := secPart[dot+1:]
		secPart = secPart[:dot]
		for len(f) < 3 {
			f += "0"
		}
		var err error
		frac, err = strconv.Atoi(f[:3])
		if err != nil {
			return Value{}, false
		}
	}
	sec, err3 := strconv.Atoi(secPart)
	if err1 != nil || err2 != nil || err3 != nil {
		return Value{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return Value{}, false
	}
	ms := ((int64(h)*60+int64(m))*60+int64(sec))*1000 + int64(frac)
	return Number(TypeTOD, float64(ms)), true
}

// literalBody strips one of the recognized prefixes, case-insensitively.
func literalBody(text string, prefixes ...string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, p := range prefixes {
		if strings.HasPrefix(upper, p) {
			return text[len(p):], true
		}
	}
	return "", false
}

// parseStringLiteral decodes a quoted string literal. Both quoting
// styles are accepted; inside the literal a doubled quote character
// stands for itself, and $-escapes cover $$, $', $", $L, $N, $P, $R, $T.
func parseStringLiteral(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	quote := text[0]
	if (quote != '\'' && quote != '"') || text[len(text)-1] != quote {
		return "", false
	}
	body := text[1 : len(text)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == quote:
			// Only a doubled quote may appear inside the literal.
			if i+1 >= len(body) || body[i+1] != quote {
				return "", false
			}
			b.WriteByte(quote)
			i++
		case c == '$' && i+1 < len(body):
			i++
			switch body[i] {
			case '$':
				b.WriteByte('$')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			case 'L', 'l', 'N', 'n':
				b.WriteByte('\n')
			case 'P', 'p':
				b.WriteByte('\f')
			case 'R', 'r':
				b.WriteByte('\r')
			case 'T', 't':
				b.WriteByte('\t')
			default:
				return "", false
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

// parseBoolLiteral parses TRUE/FALSE, case-insensitively.
func parseBoolLiteral(text string) (Value, bool) {
	switch strings.ToUpper(text) {
	case "TRUE":
		return Bool(true), true
	case "FALSE":
		return Bool(false), true
	}
	return Value{}, false
}
