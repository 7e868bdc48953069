package label

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	errUnbalanced = errors.New("unbalanced brace in template")
	errFieldName  = errors.New("placeholder is not a positional index")
	errMixed      = errors.New("cannot mix automatic and manual field numbering")
	errRange      = errors.New("placeholder index out of range")
	errConversion = errors.New("unknown conversion, expected !s or !r")
	errSpec       = errors.New("invalid format spec for a string")
)

// format substitutes positional placeholders in tmpl with args.
// {N} is args[N], {} numbers automatically from zero, {{ and }} are literal braces.
// A placeholder may carry a conversion and a format spec, {N!r:>20}; see
// convert and pad for what is accepted.
func format(tmpl string, args []string) (string, error) {
	var (
		b         strings.Builder
		next      int
		automatic bool
		manual    bool
	)

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", errUnbalanced
			}
			field, conv, spec, err := splitField(tmpl[i+1 : i+1+end])
			if err != nil {
				return "", err
			}
			i += end + 1

			var idx int
			if field == "" {
				if manual {
					return "", errMixed
				}
				automatic = true
				idx = next
				next++
			} else {
				if automatic {
					return "", errMixed
				}
				n, err := strconv.Atoi(field)
				if err != nil || field[0] == '+' || field[0] == '-' {
					return "", errFieldName
				}
				manual = true
				idx = n
			}
			if idx >= len(args) {
				return "", errRange
			}
			v, err := convert(args[idx], conv)
			if err != nil {
				return "", err
			}
			if v, err = pad(v, spec); err != nil {
				return "", err
			}
			b.WriteString(v)
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", errUnbalanced
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// splitField separates "1!r:>8" into "1", 'r' and ">8".
func splitField(f string) (name string, conv byte, spec string, err error) {
	cut := strings.IndexAny(f, "!:")
	if cut < 0 {
		return f, 0, "", nil
	}
	name, rest := f[:cut], f[cut:]
	if rest[0] == '!' {
		if len(rest) < 2 || (len(rest) > 2 && rest[2] != ':') {
			return "", 0, "", errConversion
		}
		conv = rest[1]
		rest = rest[2:]
	}
	if rest != "" {
		spec = rest[1:]
	}
	return name, conv, spec, nil
}

// convert applies !s (identity) or !r (quoted, escaped).
func convert(v string, conv byte) (string, error) {
	switch conv {
	case 0, 's':
		return v, nil
	case 'r':
		return quote(v), nil
	default:
		return "", errConversion
	}
}

// quote wraps v in single quotes, or in double quotes when v contains a
// single quote and no double quote, escaping control characters.
func quote(v string) string {
	q := byte('\'')
	if strings.IndexByte(v, '\'') >= 0 && strings.IndexByte(v, '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range v {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x`)
			b.WriteString(strconv.FormatInt(int64(r)|0x100, 16)[1:])
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// pad applies a string format spec: [[fill]align][0][width][.precision][s].
// Sign, '#', grouping, '=' alignment and numeric types do not apply to
// strings and are rejected.
func pad(v, spec string) (string, error) {
	if spec == "" {
		return v, nil
	}

	var (
		fill    rune
		align   rune
		width   int
		prec    = -1
		rs      = []rune(spec)
		i       int
		hasFill bool
	)
	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '^' || r == '=' }
	switch {
	case len(rs) >= 2 && isAlign(rs[1]):
		fill, align, hasFill, i = rs[0], rs[1], true, 2
	case isAlign(rs[0]):
		align, i = rs[0], 1
	}
	if align == '=' {
		return "", errSpec
	}
	if i < len(rs) && rs[i] == '0' {
		if !hasFill {
			fill, hasFill = '0', true
		}
		i++
	}
	width, i = digits(rs, i)
	if i < len(rs) && rs[i] == '.' {
		start := i + 1
		prec, i = digits(rs, start)
		if i == start {
			return "", errSpec
		}
	}
	if i < len(rs) && rs[i] == 's' {
		i++
	}
	if i != len(rs) {
		return "", errSpec
	}

	if !hasFill {
		fill = ' '
	}
	if prec >= 0 && utf8.RuneCountInString(v) > prec {
		v = string([]rune(v)[:prec])
	}
	n := width - utf8.RuneCountInString(v)
	if n <= 0 {
		return v, nil
	}
	switch align {
	case '>':
		return strings.Repeat(string(fill), n) + v, nil
	case '^':
		return strings.Repeat(string(fill), n/2) + v + strings.Repeat(string(fill), n-n/2), nil
	default:
		return v + strings.Repeat(string(fill), n), nil
	}
}

// digits reads a decimal number starting at rs[i]; it returns 0 and i when
// there is none.
func digits(rs []rune, i int) (int, int) {
	n := 0
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		n = n*10 + int(rs[i]-'0')
		if n > 1<<20 {
			n = 1 << 20
		}
		i++
	}
	return n, i
}
