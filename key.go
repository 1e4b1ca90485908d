package jangkau

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

// circularMarker replaces values already on the serialization path so cyclic
// structures serialize instead of recursing forever.
const circularMarker = `"[Circular]"`

// maxKeyLength bounds request keys; longer keys keep their name:method prefix
// and fold the parameter serialization through xxhash.
const maxKeyLength = 200

var timeType = reflect.TypeOf(time.Time{})

// StableSerialize produces a canonical string for v: object keys sorted,
// nil-valued keys omitted, cycles marked rather than fatal. Two structurally
// equal values always serialize identically regardless of key insertion order.
func StableSerialize(v any) string {
	var sb strings.Builder
	writeStable(&sb, reflect.ValueOf(v), map[uintptr]bool{})
	return sb.String()
}

func writeStable(sb *strings.Builder, rv reflect.Value, onPath map[uintptr]bool) {
	if !rv.IsValid() {
		sb.WriteString("null")
		return
	}

	if rv.Type() == timeType {
		writeQuoted(sb, rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano))
		return
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		writeStable(sb, rv.Elem(), onPath)

	case reflect.Pointer:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		ptr := rv.Pointer()
		if onPath[ptr] {
			sb.WriteString(circularMarker)
			return
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
		writeStable(sb, rv.Elem(), onPath)

	case reflect.Map:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		ptr := rv.Pointer()
		if onPath[ptr] {
			sb.WriteString(circularMarker)
			return
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)

		type pair struct {
			key string
			val reflect.Value
		}
		pairs := make([]pair, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if isNilValue(iter.Value()) {
				continue
			}
			pairs = append(pairs, pair{key: mapKeyString(iter.Key()), val: iter.Value()})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

		sb.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeQuoted(sb, p.key)
			sb.WriteByte(':')
			writeStable(sb, p.val, onPath)
		}
		sb.WriteByte('}')

	case reflect.Slice:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		ptr := rv.Pointer()
		if onPath[ptr] {
			sb.WriteString(circularMarker)
			return
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
		writeList(sb, rv, onPath)

	case reflect.Array:
		writeList(sb, rv, onPath)

	case reflect.Struct:
		type pair struct {
			key string
			val reflect.Value
		}
		t := rv.Type()
		pairs := make([]pair, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			if isNilValue(rv.Field(i)) {
				continue
			}
			pairs = append(pairs, pair{key: name, val: rv.Field(i)})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

		sb.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeQuoted(sb, p.key)
			sb.WriteByte(':')
			writeStable(sb, p.val, onPath)
		}
		sb.WriteByte('}')

	case reflect.String:
		writeQuoted(sb, rv.String())

	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			// NaN and infinities have no JSON form.
			sb.WriteString("null")
			return
		}
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))

	default:
		writeQuoted(sb, fmt.Sprint(rv.Interface()))
	}
}

func writeList(sb *strings.Builder, rv reflect.Value, onPath map[uintptr]bool) {
	sb.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeStable(sb, rv.Index(i), onPath)
	}
	sb.WriteByte(']')
}

func writeQuoted(sb *strings.Builder, s string) {
	b, err := json.Marshal(s)
	if err != nil {
		sb.WriteString(strconv.Quote(s))
		return
	}
	sb.Write(b)
}

func isNilValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Interface:
		return rv.IsNil() || isNilValue(rv.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func mapKeyString(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprint(rv.Interface())
}

var placeholderPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// ResolveURLTemplate substitutes every :identifier placeholder with the
// URL-escaped value of the matching parameter, consuming it. Placeholders
// without a matching key pass through literally. The returned Params hold the
// unconsumed remainder, which callers typically feed to BuildQueryString.
func ResolveURLTemplate(tmpl string, params Params) (string, Params) {
	rest := make(Params, len(params))
	for k, v := range params {
		rest[k] = v
	}

	resolved := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1:]
		v, ok := rest[name]
		if !ok {
			return m
		}
		delete(rest, name)
		return url.PathEscape(stringifyParam(v))
	})

	return resolved, rest
}

// BuildQueryString serializes params deterministically: nil values dropped,
// keys sorted, slices expanded as repeated keys. The result carries no
// leading "?".
func BuildQueryString(params Params) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := params[k]
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				elem := rv.Index(i)
				if isNilValue(elem) {
					continue
				}
				appendQueryPair(&sb, k, stringifyParam(elem.Interface()))
			}
			continue
		}
		appendQueryPair(&sb, k, stringifyParam(v))
	}
	return sb.String()
}

func appendQueryPair(sb *strings.Builder, key, value string) {
	if sb.Len() > 0 {
		sb.WriteByte('&')
	}
	sb.WriteString(url.QueryEscape(key))
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(value))
}

// stringifyParam renders a parameter value for URLs and query strings.
func stringifyParam(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		if raw, err := json.Marshal(v); err == nil {
			return strings.Trim(string(raw), `"`)
		}
		return fmt.Sprint(v)
	}
}

// RequestKey derives the deterministic key identifying a logical call, used
// for both caching and de-duplication. Equivalent parameter objects produce
// the same key under any insertion order.
func RequestKey(name, method string, params Params) string {
	canon := "{}"
	if len(params) > 0 {
		canon = StableSerialize(params)
	}

	key := name + ":" + strings.ToUpper(method) + ":" + canon
	if len(key) > maxKeyLength {
		sum := xxhash.Sum64String(canon)
		key = name + ":" + strings.ToUpper(method) + ":" + strconv.FormatUint(sum, 16)
	}
	return key
}
