package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// paramSerializer turns request parameters into key segments. Two parameter
// sets that decode to the same query produce the same segment: zero-valued
// struct fields and nil pointers are left out, so an omitted filter and an
// empty one share a cache entry.
type paramSerializer struct{}

// NewDefaultKeySerializer returns the serializer Key uses.
func NewDefaultKeySerializer() KeySerializer {
	return paramSerializer{}
}

// SerializeKey joins method and the serialized args with KeySeparator.
func (s paramSerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.value(reflect.ValueOf(arg)))
	}
	return strings.Join(parts, KeySeparator)
}

var textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()

func (s paramSerializer) value(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}
	// ids and timestamps render as their text form
	if rv.Kind() != reflect.Interface && rv.Type().Implements(textMarshaler) && (rv.Kind() != reflect.Pointer || !rv.IsNil()) {
		if b, err := rv.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(b)
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.value(rv.Elem())
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return s.list(rv)
	case reflect.Array:
		return s.list(rv)
	case reflect.Map:
		return s.mapping(rv)
	case reflect.Struct:
		return s.fields(rv)
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%x", rv.Kind(), rv.Pointer())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprint(rv.Interface())
	}

	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return rv.Type().String()
	}
	return string(data)
}

func (s paramSerializer) list(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.value(rv.Index(i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s paramSerializer) mapping(rv reflect.Value) string {
	if rv.IsNil() || rv.Len() == 0 {
		return "{}"
	}
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.value(iter.Key())+"="+s.value(iter.Value()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func (s paramSerializer) fields(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || rv.Field(i).IsZero() {
			continue
		}
		parts = append(parts, paramName(f)+"="+s.value(rv.Field(i)))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// paramName is the json tag name when present, else the field name with a
// lower-case first letter, matching the query parameter spelling.
func paramName(f reflect.StructField) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
		return tag
	}
	r, size := utf8.DecodeRuneInString(f.Name)
	return string(unicode.ToLower(r)) + f.Name[size:]
}

var defaultSerializer = NewDefaultKeySerializer()

// Key builds a key for region: "<region>.<method>" followed by the serialized
// params. The region prefix is what Invalidate(region) matches on.
func Key(region, method string, params ...any) string {
	return defaultSerializer.SerializeKey(region+"."+method, params...)
}
