package frontyaml

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Marshal returns a canonical front-matter YAML encoding of v.
//
// The mapping from Go values is:
//   - bool -> true | false
//   - integers and floats -> plain numbers (whole floats keep a ".0")
//   - string -> plain text, a double-quoted scalar, or a '|' block scalar
//     for multiline values
//   - struct and map -> block mapping (map keys sorted, struct fields in
//     declaration order)
//   - slice and array -> block sequence
//   - nil pointer or interface -> null
//
// Struct fields can be renamed or skipped with `yaml` tags, and
// `yaml:",omitempty"` drops zero values, as in encoding/json. Output always
// parses back to an equivalent tree, so Marshal and Parse round trip.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// An Encoder writes front-matter YAML to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the encoding of v to the stream, followed by a newline. See
// the documentation for Marshal for the conversion rules.
func (enc *Encoder) Encode(v any) error {
	s := newEncodeState(enc.w)
	s.marshalValue(reflect.ValueOf(v), 0, false)
	if s.err == nil {
		s.write("\n")
	}
	err := s.err
	putEncodeState(s)
	return err
}

// encodeState carries the output writer and the first error through the
// recursive encoding walk.
type encodeState struct {
	w   io.Writer
	err error
}

var encodeStatePool = sync.Pool{
	New: func() any {
		return new(encodeState)
	},
}

func newEncodeState(w io.Writer) *encodeState {
	s := encodeStatePool.Get().(*encodeState)
	s.w = w
	return s
}

func putEncodeState(s *encodeState) {
	s.w = nil
	s.err = nil
	encodeStatePool.Put(s)
}

// write sends str to the output, doing nothing once an error has occurred.
func (s *encodeState) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

// marshalValue writes v at the current output position. indent is the column
// at which continuation lines of block collections and block scalars start.
// When inline is true the cursor already sits where the first line's content
// belongs, directly after a '- '.
func (s *encodeState) marshalValue(v reflect.Value, indent int, inline bool) {
	if s.err != nil {
		return
	}
	v = indirect(v, &s.err)
	if s.err != nil {
		return
	}
	if !v.IsValid() {
		s.write("null")
		return
	}

	switch v.Kind() {
	case reflect.Map, reflect.Struct:
		pairs := mappingPairs(v, &s.err)
		if s.err != nil {
			return
		}
		if len(pairs) == 0 {
			s.write("{}")
			return
		}
		for i, p := range pairs {
			if i > 0 {
				s.write("\n")
			}
			if i > 0 || !inline {
				s.write(strings.Repeat(" ", indent))
			}
			s.writePair(p.key, p.val, indent)
		}
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			s.write("[]")
			return
		}
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				s.write("\n")
			}
			if i > 0 || !inline {
				s.write(strings.Repeat(" ", indent))
			}
			s.write("- ")
			s.marshalValue(v.Index(i), indent+2, true)
		}
	case reflect.String:
		s.marshalString(v.String(), indent)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.write(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s.write(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		s.marshalFloat(v.Float())
	case reflect.Bool:
		s.write(strconv.FormatBool(v.Bool()))
	default:
		s.err = fmt.Errorf("frontyaml: unsupported type: %s", v.Type())
	}
}

// writePair writes one 'key: value' pair of a block mapping. indent is the
// key's own column; nested block content goes two columns deeper.
func (s *encodeState) writePair(key string, val reflect.Value, indent int) {
	s.write(quoteKeyIfNeeded(key))

	v := indirect(val, &s.err)
	if s.err != nil {
		return
	}
	if !v.IsValid() {
		s.write(": null")
		return
	}

	switch v.Kind() {
	case reflect.Map, reflect.Struct:
		pairs := mappingPairs(v, &s.err)
		if s.err != nil {
			return
		}
		if len(pairs) == 0 {
			s.write(": {}")
			return
		}
		s.write(":\n")
		s.marshalValue(val, indent+2, false)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			s.write(": []")
			return
		}
		s.write(":\n")
		s.marshalValue(val, indent+2, false)
	default:
		s.write(": ")
		s.marshalValue(val, indent+2, false)
	}
}

// marshalString writes a string scalar. Multiline strings that survive a
// literal block scalar unchanged are written as '|' or '|-' with their lines
// at the given indentation; everything else is plain text or double-quoted.
// Block form needs a positive indent, since content at column 0 would not
// scan as part of the scalar.
func (s *encodeState) marshalString(str string, indent int) {
	if strings.Contains(str, "\n") && indent > 0 && blockScalarSafe(str) {
		content, clipped := strings.CutSuffix(str, "\n")
		if clipped {
			s.write("|")
		} else {
			s.write("|-")
		}
		for _, line := range strings.Split(content, "\n") {
			s.write("\n")
			if line != "" {
				s.write(strings.Repeat(" ", indent))
				s.write(line)
			}
		}
		return
	}
	if strings.Contains(str, "\n") || needsQuoting(str) {
		s.write(strconv.Quote(str))
		return
	}
	s.write(str)
}

// marshalFloat writes a finite float. Whole values keep a ".0" so they fold
// back as floats rather than integers.
func (s *encodeState) marshalFloat(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		s.err = fmt.Errorf("frontyaml: unsupported float value: %v", f)
		return
	}
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	s.write(out)
}

// pair is one key/value entry of a mapping about to be written.
type pair struct {
	key string
	val reflect.Value
}

// mappingPairs returns the pairs a map or struct marshals to: map keys are
// sorted for deterministic output, struct fields keep declaration order and
// honor `yaml` tag renames, "-" skips and omitempty.
func mappingPairs(v reflect.Value, errp *error) []pair {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			*errp = fmt.Errorf("frontyaml: map key type must be a string, not %s", v.Type().Key())
			return nil
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
		pairs := make([]pair, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, pair{key: k.String(), val: v.MapIndex(k)})
		}
		return pairs
	case reflect.Struct:
		var pairs []pair
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, opts, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = strings.ToLower(field.Name)
			}
			if strings.Contains(opts, "omitempty") && isEmptyValue(v.Field(i)) {
				continue
			}
			pairs = append(pairs, pair{key: name, val: v.Field(i)})
		}
		return pairs
	}
	return nil
}

// isEmptyValue mirrors the omitempty rule of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// needsQuoting reports whether a single-line string must be double-quoted to
// scan back as the same scalar: empty or padded strings, strings that would
// fold to null, bool or a number, leading indicator characters, a colon
// before whitespace, a comment introducer, or control characters.
func needsQuoting(str string) bool {
	if str == "" {
		return true
	}
	if isSpaceOrTab(str[0]) || isSpaceOrTab(str[len(str)-1]) {
		return true
	}
	switch str {
	case "~", "null", "Null", "NULL", "true", "True", "TRUE", "false", "False", "FALSE":
		return true
	}
	if looksNumeric(str) {
		return true
	}
	switch str[0] {
	case '-', '?', ':', ',', '[', ']', '{', '}', '#', '&', '*', '!', '|', '>', '\'', '"', '%', '@', '`':
		return true
	}
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c < 0x20 || c == 0x7f {
			return true
		}
		if c == ':' && (i+1 == len(str) || isSpaceOrTab(str[i+1])) {
			return true
		}
		if c == '#' && i > 0 && isSpaceOrTab(str[i-1]) {
			return true
		}
	}
	return false
}

// blockScalarSafe reports whether a literal block scalar reproduces str
// exactly: no carriage returns, at most one trailing newline, and no line
// starting with whitespace, which would disturb indentation detection.
func blockScalarSafe(str string) bool {
	if strings.Contains(str, "\r") || strings.HasSuffix(str, "\n\n") {
		return false
	}
	content := strings.TrimSuffix(str, "\n")
	if content == "" {
		return false
	}
	for _, line := range strings.Split(content, "\n") {
		if line != "" && isSpaceOrTab(line[0]) {
			return false
		}
	}
	return true
}

// bareKeyRegex matches keys that can be written without quotes.
var bareKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// quoteKeyIfNeeded wraps a mapping key in quotes unless it is a bare
// identifier.
func quoteKeyIfNeeded(key string) string {
	if bareKeyRegex.MatchString(key) {
		return key
	}
	return strconv.Quote(key)
}

// indirect walks pointer and interface chains to the concrete value. A nil
// along the way yields an invalid value, written as null. The iteration cap
// guards against cyclic chains.
func indirect(v reflect.Value, err *error) reflect.Value {
	for i := 0; i < 1000; i++ {
		if !v.IsValid() {
			return v
		}
		kind := v.Kind()
		if kind != reflect.Pointer && kind != reflect.Interface {
			return v
		}
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	*err = fmt.Errorf("frontyaml: circular or excessively deep structure")
	return reflect.Value{}
}
