package codec

import "reflect"

// Copy returns a deep copy of v. Maps, slices, arrays and pointers are
// duplicated with their concrete types kept; shared instances and cycles in v are shared and
// cyclic in the copy as well. Leaf values of kinds the encoder does not
// support are carried over as-is.
func Copy(v any) any {
	c := &copier{seen: make(map[identity]reflect.Value)}
	out := c.copy(reflect.ValueOf(v))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

type copier struct {
	seen map[identity]reflect.Value
}

func (c *copier) copy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return c.copy(v.Elem())

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		id := identity{ptr: v.Pointer(), kind: reflect.Map}
		if prev, ok := c.seen[id]; ok {
			return prev
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[id] = out
		elemType := v.Type().Elem()
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), assignable(c.copy(iter.Value()), elemType))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		id := identity{ptr: v.Pointer(), kind: reflect.Slice, len: v.Len()}
		if prev, ok := c.seen[id]; ok && v.Len() > 0 {
			return prev
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if v.Len() > 0 {
			c.seen[id] = out
		}
		elemType := v.Type().Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(assignable(c.copy(v.Index(i)), elemType))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		elemType := v.Type().Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(assignable(c.copy(v.Index(i)), elemType))
		}
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		id := identity{ptr: v.Pointer(), kind: reflect.Pointer}
		if prev, ok := c.seen[id]; ok {
			return prev
		}
		out := reflect.New(v.Type().Elem())
		c.seen[id] = out
		out.Elem().Set(assignable(c.copy(v.Elem()), v.Type().Elem()))
		return out

	default:
		return v
	}
}

func assignable(v reflect.Value, to reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(to)
	}
	if v.Type().AssignableTo(to) {
		return v
	}
	if v.Type().ConvertibleTo(to) {
		return v.Convert(to)
	}
	return v
}
