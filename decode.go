package frontyaml

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Fold collapses a parsed tree into plain Go values: mappings become
// map[string]any with the later duplicate key winning, sequences become
// []any, and scalars fold to an inferred value. Plain scalars infer null,
// booleans, integers and floats; quoted and block scalars always stay
// strings, which keeps a quoted "true" distinct from a bare true.
func Fold(n Node) any {
	switch v := n.(type) {
	case nil:
		return nil
	case *ScalarNode:
		return foldScalar(v)
	case *SequenceNode:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = Fold(item)
		}
		return out
	case *MapNode:
		out := make(map[string]any, len(v.Properties))
		for _, prop := range v.Properties {
			out[prop.Key.Value] = Fold(prop.Value)
		}
		return out
	default:
		return nil
	}
}

// foldScalar interprets a plain scalar's text as null, bool, int64, float64
// or string. Quoting or a block style pins the value to a string.
func foldScalar(s *ScalarNode) any {
	if s.Format != FormatNone {
		return s.Value
	}
	switch s.Value {
	case "", "~", "null", "Null", "NULL":
		return nil
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if looksNumeric(s.Value) {
		if i, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s.Value, 64); err == nil {
			return f
		}
	}
	return s.Value
}

// looksNumeric gates number inference so that words strconv would accept,
// like "inf" and "nan", stay strings.
func looksNumeric(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
	}
	return i < len(s) && isDigit(s[i])
}

// Decoder reads and decodes a front-matter YAML document from an input
// stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the whole stream and stores the decoded document in the
// value pointed to by v.
func (dec *Decoder) Decode(v any) error {
	data, err := io.ReadAll(dec.r)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return Unmarshal(data, v)
}

// Unmarshal parses data and stores the result in the value pointed to by v.
// If v is nil or not a pointer, it returns an error.
//
// Values convert with the following mappings:
//   - plain scalars become string, int64, float64, bool or nil (see Fold)
//   - quoted and block scalars become string
//   - mappings become map[string]any, or fill struct fields matched by
//     `yaml` tags (falling back to the lowercased field name)
//   - sequences become []any or typed slices
//
// Parse diagnostics are joined into the returned error; the tree built
// around them is not decoded.
func Unmarshal(data []byte, v any) error {
	var errs []ParseError
	root := Parse(string(data), &errs, ParseOptions{})
	if len(errs) > 0 {
		return joinParseErrors(errs)
	}
	return setValue(v, Fold(root))
}

// UnmarshalFrontMatter parses the front-matter header of a full prompt or
// agent file into v and returns the body after the closing marker. A file
// without front matter leaves v untouched and returns the whole source as
// the body.
func UnmarshalFrontMatter(data []byte, v any) (body string, err error) {
	var errs []ParseError
	root, body := ParseFrontMatter(string(data), &errs, ParseOptions{})
	if len(errs) > 0 {
		return body, joinParseErrors(errs)
	}
	if root == nil {
		return body, nil
	}
	return body, setValue(v, Fold(root))
}

func joinParseErrors(errs []ParseError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// setValue sets the destination value from the folded source value.
func setValue(dst, src any) error {
	if dst == nil {
		return errors.New("cannot unmarshal into a nil value")
	}

	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Ptr {
		return errors.New("destination is not a pointer")
	}
	if val.IsNil() {
		return errors.New("destination pointer is nil")
	}

	return setValueReflect(val.Elem(), src)
}

// setValueReflect recursively sets dst from src using reflection.
func setValueReflect(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	s := reflect.ValueOf(src)

	// An interface destination takes the folded value as-is.
	if dst.Kind() == reflect.Interface {
		dst.Set(s)
		return nil
	}

	if s.Type().AssignableTo(dst.Type()) {
		dst.Set(s)
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return setStruct(dst, src)
	case reflect.Slice:
		return setSlice(dst, src)
	case reflect.Map:
		return setMap(dst, src)
	case reflect.Ptr:
		return setPtr(dst, src)
	case reflect.String:
		return setString(dst, src)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(dst, src)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(dst, src)
	case reflect.Float32, reflect.Float64:
		return setFloat(dst, src)
	case reflect.Bool:
		return setBool(dst, src)
	default:
		return fmt.Errorf("cannot unmarshal %T into %s", src, dst.Type())
	}
}

// setStruct unmarshals a mapping into a struct.
func setStruct(dst reflect.Value, src any) error {
	srcMap, ok := src.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into struct", src)
	}

	structType := dst.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldValue := dst.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		fieldName := getFieldName(field)
		if fieldName == "-" {
			continue
		}

		if srcValue, exists := srcMap[fieldName]; exists {
			if err := setValueReflect(fieldValue, srcValue); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}
	}

	return nil
}

// getFieldName returns the mapping key for a struct field: the name from
// the yaml tag when present, otherwise the lowercased Go field name, the
// convention YAML decoders use.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" {
		return strings.ToLower(field.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return strings.ToLower(field.Name)
	}
	return name
}

// setSlice unmarshals a sequence into a slice.
func setSlice(dst reflect.Value, src any) error {
	srcSlice, ok := src.([]any)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into slice", src)
	}

	newSlice := reflect.MakeSlice(dst.Type(), len(srcSlice), len(srcSlice))
	for i, srcElem := range srcSlice {
		if err := setValueReflect(newSlice.Index(i), srcElem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	dst.Set(newSlice)
	return nil
}

// setMap unmarshals a mapping into a map with string keys.
func setMap(dst reflect.Value, src any) error {
	srcMap, ok := src.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into map", src)
	}

	mapType := dst.Type()
	if mapType.Key().Kind() != reflect.String {
		return errors.New("maps with non-string keys are not supported")
	}

	newMap := reflect.MakeMap(mapType)
	valueType := mapType.Elem()
	for key, srcValue := range srcMap {
		value := reflect.New(valueType).Elem()
		if err := setValueReflect(value, srcValue); err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		newMap.SetMapIndex(reflect.ValueOf(key), value)
	}

	dst.Set(newMap)
	return nil
}

// setPtr unmarshals into a pointer, allocating as needed.
func setPtr(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	newPtr := reflect.New(dst.Type().Elem())
	if err := setValueReflect(newPtr.Elem(), src); err != nil {
		return err
	}

	dst.Set(newPtr)
	return nil
}

// setString sets a string field. Scalars that folded to numbers or booleans
// still read back as their source text, matching how YAML decoders fill
// string fields from bare scalars.
func setString(dst reflect.Value, src any) error {
	switch v := src.(type) {
	case string:
		dst.SetString(v)
	case int64:
		dst.SetString(strconv.FormatInt(v, 10))
	case float64:
		dst.SetString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		dst.SetString(strconv.FormatBool(v))
	default:
		return fmt.Errorf("cannot unmarshal %T into string", src)
	}
	return nil
}

// setInt converts folded numeric values to a signed integer field.
func setInt(dst reflect.Value, src any) error {
	switch v := src.(type) {
	case int64:
		if dst.OverflowInt(v) {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		dst.SetInt(v)
		return nil
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("cannot unmarshal float %g into integer type", v)
		}
		intVal := int64(v)
		if dst.OverflowInt(intVal) {
			return fmt.Errorf("value %g overflows %s", v, dst.Type())
		}
		dst.SetInt(intVal)
		return nil
	default:
		return fmt.Errorf("cannot unmarshal %T into integer", src)
	}
}

// setUint converts folded numeric values to an unsigned integer field.
func setUint(dst reflect.Value, src any) error {
	switch v := src.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot unmarshal negative value %d into unsigned integer", v)
		}
		uintVal := uint64(v)
		if dst.OverflowUint(uintVal) {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		dst.SetUint(uintVal)
		return nil
	case float64:
		if v < 0 {
			return fmt.Errorf("cannot unmarshal negative value %g into unsigned integer", v)
		}
		if v != math.Trunc(v) {
			return fmt.Errorf("cannot unmarshal float %g into integer type", v)
		}
		uintVal := uint64(v)
		if dst.OverflowUint(uintVal) {
			return fmt.Errorf("value %g overflows %s", v, dst.Type())
		}
		dst.SetUint(uintVal)
		return nil
	default:
		return fmt.Errorf("cannot unmarshal %T into unsigned integer", src)
	}
}

// setFloat converts folded numeric values to a float field.
func setFloat(dst reflect.Value, src any) error {
	switch v := src.(type) {
	case int64:
		floatVal := float64(v)
		if dst.OverflowFloat(floatVal) {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		dst.SetFloat(floatVal)
		return nil
	case float64:
		if dst.OverflowFloat(v) {
			return fmt.Errorf("value %g overflows %s", v, dst.Type())
		}
		dst.SetFloat(v)
		return nil
	default:
		return fmt.Errorf("cannot unmarshal %T into float", src)
	}
}

// setBool sets a bool field.
func setBool(dst reflect.Value, src any) error {
	v, ok := src.(bool)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into bool", src)
	}
	dst.SetBool(v)
	return nil
}
