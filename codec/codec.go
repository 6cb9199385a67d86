package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// RefKey is the single key of a back-reference token.
const RefKey = "$ref"

// RootPath is the path of the value passed to Encode.
const RootPath = "$"

// identity keys a container instance. Slices are keyed by their backing
// array and length, so two slices over the same array with different
// lengths are distinct instances.
type identity struct {
	ptr  uintptr
	kind reflect.Kind
	len  int
}

// Encode converts v into an acyclic tree made of map[string]any, []any and
// scalars. Repeated visits of the same map or slice instance become
// back-reference tokens pointing at the first occurrence.
func Encode(v any) (any, error) {
	e := &encoder{seen: make(map[identity]string)}
	return e.encode(reflect.ValueOf(v), RootPath)
}

type encoder struct {
	seen map[identity]string
}

var numberType = reflect.TypeOf(json.Number(""))

func (e *encoder) encode(v reflect.Value, path string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == numberType {
		return json.Number(v.String()), nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return e.encode(v.Elem(), path)

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.String:
		return v.String(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &SerializationError{Path: path, Err: fmt.Errorf("non-finite number %v", f)}
		}
		return f, nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, &SerializationError{Path: path, Type: v.Type().String()}
		}
		if v.IsNil() {
			return nil, nil
		}
		id := identity{ptr: v.Pointer(), kind: reflect.Map}
		if ref, ok := e.seen[id]; ok {
			return map[string]any{RefKey: ref}, nil
		}
		e.seen[id] = path

		entries := sortedEntries(v)
		out := make(map[string]any, len(entries))
		for _, entry := range entries {
			child, err := e.encode(entry.value, keyPath(path, entry.key))
			if err != nil {
				return nil, err
			}
			out[escapeKey(entry.key)] = child
		}
		return out, nil

	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Len() > 0 {
			id := identity{ptr: v.Pointer(), kind: reflect.Slice, len: v.Len()}
			if ref, ok := e.seen[id]; ok {
				return map[string]any{RefKey: ref}, nil
			}
			e.seen[id] = path
		}
		return e.encodeElems(v, path)

	case reflect.Array:
		return e.encodeElems(v, path)

	default:
		return nil, &SerializationError{Path: path, Type: v.Type().String()}
	}
}

func (e *encoder) encodeElems(v reflect.Value, path string) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		child, err := e.encode(v.Index(i), indexPath(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = child
	}
	return out, nil
}

// Decode rebuilds the graph encoded by Encode. Back-reference tokens resolve
// to the instance materialized at the referenced path.
func Decode(tree any) (any, error) {
	d := &decoder{seen: make(map[string]any)}
	return d.decode(tree, RootPath)
}

type decoder struct {
	seen map[string]any
}

func (d *decoder) decode(v any, path string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t[RefKey]; ok {
			ref, isString := raw.(string)
			if !isString || len(t) != 1 {
				return nil, corrupt(path, "malformed back-reference")
			}
			target, ok := d.seen[ref]
			if !ok {
				return nil, corrupt(path, fmt.Sprintf("unresolved back-reference %q", ref))
			}
			return target, nil
		}

		out := make(map[string]any, len(t))
		d.seen[path] = out

		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return unescapeKey(keys[i]) < unescapeKey(keys[j]) })

		for _, k := range keys {
			key := unescapeKey(k)
			child, err := d.decode(t[k], keyPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil

	case []any:
		out := make([]any, len(t))
		if len(t) > 0 {
			d.seen[path] = out
		}
		for i, elem := range t {
			child, err := d.decode(elem, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil

	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return u, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, &CorruptSnapshotError{Path: path, Reason: "invalid number", Err: err}
		}
		return f, nil

	case nil, bool, string, float64, float32, int, int64, int32, uint64:
		return t, nil

	default:
		return nil, corrupt(path, fmt.Sprintf("unexpected %T", v))
	}
}

// Marshal encodes v and serializes the tree as JSON.
func Marshal(v any) ([]byte, error) {
	tree, err := Encode(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

// Unmarshal parses JSON produced by Marshal and decodes it. Integral numbers
// come back as int64, or uint64 above math.MaxInt64. All other numbers come
// back as float64.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &CorruptSnapshotError{Reason: "invalid JSON", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, corrupt("", "trailing data after snapshot")
	}
	return Decode(tree)
}

type mapEntry struct {
	key   string
	value reflect.Value
}

func sortedEntries(v reflect.Value) []mapEntry {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: iter.Key().String(), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}

func keyPath(parent, key string) string {
	return parent + "[" + strconv.Quote(key) + "]"
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// Keys starting with '$' get one extra '$' so data can never be read back
// as a back-reference token.
func escapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return "$" + k
	}
	return k
}

func unescapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return k[1:]
	}
	return k
}
