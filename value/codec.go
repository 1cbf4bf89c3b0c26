package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag bytes for the canonical encoding.
const (
	tagString  = 's'
	tagInt     = 'i'
	tagFloat   = 'd'
	tagBool    = 'b'
	tagNone    = 'n'
	tagList    = 'l'
	tagPointer = 'p'
	tagElemRef = 'e'
)

// escape table for string payloads: 0x00, 0x01, \t, \n.
var stringEscapes = map[byte][2]byte{
	0x00: {0x01, 0x02},
	0x01: {0x01, 0x01},
	'\t': {0x01, 0x03},
	'\n': {0x01, 0x04},
}

var stringUnescapes = map[byte]byte{
	0x02: 0x00,
	0x01: 0x01,
	0x03: '\t',
	0x04: '\n',
}

// ToBytes renders v as its canonical, self-delimited-where-needed encoding:
// one leading tag byte then payload. The top-level encoding never contains
// a raw \n, \t, or \0, so a caller may safely line-segment a stream of
// encodings.
func ToBytes(v Value) []byte {
	switch v.Kind {
	case KindString:
		return append([]byte{tagString}, escapeString(v.S)...)
	case KindInt:
		return append([]byte{tagInt}, []byte(strconv.FormatInt(v.I, 10))...)
	case KindFloat:
		return append([]byte{tagFloat}, []byte(strconv.FormatFloat(v.F, 'g', -1, 64))...)
	case KindBool:
		if v.B {
			return []byte{tagBool, '1'}
		}
		return []byte{tagBool, '0'}
	case KindNone:
		return []byte{tagNone}
	case KindList, KindSetList:
		return encodeList(v)
	case KindPointer:
		return encodePointer(v.Ptr)
	default:
		return []byte{tagNone}
	}
}

func escapeString(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if pair, ok := stringEscapes[c]; ok {
			out = append(out, pair[0], pair[1])
		} else {
			out = append(out, c)
		}
	}
	return out
}

func unescapeString(b []byte) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == 0x01 {
			if i+1 >= len(b) {
				return "", fmt.Errorf("truncated escape sequence")
			}
			repl, ok := stringUnescapes[b[i+1]]
			if !ok {
				return "", fmt.Errorf("unknown escape byte %#x", b[i+1])
			}
			sb.WriteByte(repl)
			i++
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// encodeList emits an ASCII-decimal length then the child encoding for each
// element, concatenated. The length token is self-terminating: it ends at
// the first non-digit byte, which is always the child's tag byte (every tag
// is a letter), so no delimiter byte is needed between the two.
func encodeList(v Value) []byte {
	var b strings.Builder
	for _, elem := range v.List {
		enc := ToBytes(elem)
		b.WriteString(strconv.Itoa(len(enc)))
		b.Write(enc)
	}
	out := make([]byte, 0, b.Len()+1)
	out = append(out, tagList)
	out = append(out, []byte(b.String())...)
	return out
}

// encodePointer concatenates framed elements: elementrefs prefixed 'e'
// before their inner framing; slot-name elements framed as tagString.
func encodePointer(l Location) []byte {
	var parts [][]byte
	entityEnc := append([]byte{tagString}, escapeString(l.Entity)...)
	parts = append(parts, entityEnc)
	for _, e := range l.Path {
		if e.IsRef {
			inner := ToBytes(e.Ref.Value)
			framed := append([]byte{tagElemRef}, inner...)
			parts = append(parts, framed)
		} else {
			parts = append(parts, append([]byte{tagString}, escapeString(e.Slot)...))
		}
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.Write(p)
	}
	out := make([]byte, 0, b.Len()+1)
	out = append(out, tagPointer)
	out = append(out, []byte(b.String())...)
	return out
}

// ParseValue decodes a canonical encoding produced by ToBytes. It returns
// the decoded value and the number of bytes consumed, so callers framing a
// longer buffer (e.g. storemap.FileStore records) can advance past it.
func ParseValue(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, fmt.Errorf("empty encoding")
	}
	tag := b[0]
	rest := b[1:]
	switch tag {
	case tagNone:
		return None(), 1, nil
	case tagBool:
		if len(rest) == 0 {
			return Value{}, 0, fmt.Errorf("truncated bool")
		}
		return Bool(rest[0] == '1'), 2, nil
	case tagInt:
		n := scanToken(rest)
		i, err := strconv.ParseInt(string(rest[:n]), 10, 64)
		if err != nil {
			return Value{}, 0, err
		}
		return Int(i), 1 + n, nil
	case tagFloat:
		n := scanToken(rest)
		f, err := strconv.ParseFloat(string(rest[:n]), 64)
		if err != nil {
			return Value{}, 0, err
		}
		return Float(f), 1 + n, nil
	case tagString:
		s, err := unescapeString(rest)
		if err != nil {
			return Value{}, 0, err
		}
		return String(s), len(b), nil
	case tagList:
		elems, n, err := parseFramedSeq(rest)
		if err != nil {
			return Value{}, 0, err
		}
		vs := make([]Value, 0, len(elems))
		for _, e := range elems {
			ev, _, err := ParseValue(e)
			if err != nil {
				return Value{}, 0, err
			}
			vs = append(vs, ev)
		}
		result := List(vs)
		if len(vs) > 0 {
			// kind is decided by caller context (encstore promotion);
			// default is List unless the caller re-tags as SetList.
		}
		return result, 1 + n, nil
	case tagPointer:
		elems, n, err := parseFramedSeq(rest)
		if err != nil {
			return Value{}, 0, err
		}
		if len(elems) == 0 {
			return Value{}, 0, fmt.Errorf("pointer with no entity")
		}
		ent, _, err := ParseValue(elems[0])
		if err != nil {
			return Value{}, 0, err
		}
		entName, ok := ent.AsString()
		if !ok {
			return Value{}, 0, fmt.Errorf("pointer entity not a string")
		}
		loc := Location{Entity: entName}
		for _, raw := range elems[1:] {
			if len(raw) == 0 {
				return Value{}, 0, fmt.Errorf("empty pointer path element")
			}
			if raw[0] == tagElemRef {
				inner, _, err := ParseValue(raw[1:])
				if err != nil {
					return Value{}, 0, err
				}
				loc.Path = append(loc.Path, Ref(inner))
			} else {
				sv, _, err := ParseValue(raw)
				if err != nil {
					return Value{}, 0, err
				}
				name, ok := sv.AsString()
				if !ok {
					return Value{}, 0, fmt.Errorf("slot path element not a string")
				}
				loc.Path = append(loc.Path, Slot(name))
			}
		}
		return Pointer(loc), 1 + n, nil
	default:
		return Value{}, 0, fmt.Errorf("unknown tag byte %#x", tag)
	}
}

// scanToken returns the length of a run of numeric-literal bytes (digits
// plus the sign/exponent/decimal-point characters strconv.FormatInt and
// strconv.FormatFloat may emit); used for decimal int/float tokens, which
// run to the end of the (already length-framed) slice passed in.
func scanToken(b []byte) int {
	n := 0
	for n < len(b) {
		c := b[n]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			n++
			continue
		}
		break
	}
	return n
}

// parseFramedSeq parses the "ASCII-decimal length, payload" framing used by
// encodeList/encodePointer and returns the raw payload slices plus total
// bytes consumed. The length token is self-terminating: it ends at the
// first non-digit byte, which is always the payload's own tag byte.
func parseFramedSeq(b []byte) ([][]byte, int, error) {
	var out [][]byte
	pos := 0
	for pos < len(b) {
		lenStart := pos
		for pos < len(b) && b[pos] >= '0' && b[pos] <= '9' {
			pos++
		}
		if pos == lenStart {
			return nil, 0, fmt.Errorf("truncated length token")
		}
		n, err := strconv.Atoi(string(b[lenStart:pos]))
		if err != nil {
			return nil, 0, err
		}
		if pos+n > len(b) {
			return nil, 0, fmt.Errorf("truncated payload")
		}
		out = append(out, b[pos:pos+n])
		pos += n
	}
	return out, pos, nil
}

// ParseAsSetList is ParseValue but re-tags a decoded List as SetList; used
// by encstore when it knows the stored container was promoted.
func ParseAsSetList(b []byte) (Value, int, error) {
	v, n, err := ParseValue(b)
	if err != nil {
		return v, n, err
	}
	if v.Kind == KindList {
		v.Kind = KindSetList
	}
	return v, n, nil
}
