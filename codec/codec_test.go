package codec

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

// cyclicGraph builds two records that reference each other plus a sub-record
// shared by both.
func cyclicGraph() map[string]any {
	shared := map[string]any{"city": "Lisbon"}
	a := map[string]any{"__dataID__": "a", "name": "A", "address": shared}
	b := map[string]any{"__dataID__": "b", "name": "B", "address": shared}
	a["friend"] = b
	b["friend"] = a
	return map[string]any{
		"records": map[string]any{"a": a, "b": b},
	}
}

func TestEncode_CycleBecomesBackReference(t *testing.T) {
	tree, err := Encode(cyclicGraph())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	records := tree.(map[string]any)["records"].(map[string]any)
	a := records["a"].(map[string]any)
	b := records["b"].(map[string]any)

	// "a" is visited first, so b.friend points back at it.
	friend, ok := a["friend"].(map[string]any)
	if !ok {
		t.Fatalf("a.friend = %T, want inline map", a["friend"])
	}
	if got := friend["friend"]; !reflect.DeepEqual(got, map[string]any{RefKey: `$["records"]["a"]`}) {
		t.Errorf("a.friend.friend = %v, want back-reference to a", got)
	}

	// records.b was first emitted inline under a.friend.
	if got := b[RefKey]; got != `$["records"]["a"]["friend"]` {
		t.Errorf("records.b = %v, want back-reference to a.friend", b)
	}

	// The shared address is inline on its first visit only.
	if _, ok := a["address"].(map[string]any)["city"]; !ok {
		t.Errorf("a.address should be emitted inline, got %v", a["address"])
	}
	if got := friend["address"]; !reflect.DeepEqual(got, map[string]any{RefKey: `$["records"]["a"]["address"]`}) {
		t.Errorf("a.friend.address = %v, want back-reference", got)
	}
}

func TestEncode_EqualButDistinctNotCollapsed(t *testing.T) {
	x := map[string]any{"v": 1}
	y := map[string]any{"v": 1}
	tree, err := Encode(map[string]any{"x": x, "y": y})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got := tree.(map[string]any)["y"].(map[string]any)
	if _, isRef := got[RefKey]; isRef {
		t.Fatalf("structurally equal maps were collapsed: %v", got)
	}
}

func TestRoundTrip_PreservesCyclesAndIdentity(t *testing.T) {
	data, err := Marshal(cyclicGraph())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	records := out.(map[string]any)["records"].(map[string]any)
	a := records["a"].(map[string]any)
	b := records["b"].(map[string]any)

	if a["name"] != "A" || b["name"] != "B" {
		t.Fatalf("names = %v, %v", a["name"], b["name"])
	}

	// Cycle: a.friend is b and b.friend is a.
	if reflect.ValueOf(a["friend"]).Pointer() != reflect.ValueOf(b).Pointer() {
		t.Error("a.friend is not the decoded b instance")
	}
	if reflect.ValueOf(b["friend"]).Pointer() != reflect.ValueOf(a).Pointer() {
		t.Error("b.friend is not the decoded a instance")
	}

	// Shared identity: a mutation through one path is visible through the other.
	a["address"].(map[string]any)["city"] = "Porto"
	if got := b["address"].(map[string]any)["city"]; got != "Porto" {
		t.Errorf("b.address.city = %v, want Porto (shared instance)", got)
	}
}

func TestRoundTrip_SharedSlice(t *testing.T) {
	tags := []any{"x", "y"}
	in := map[string]any{"first": tags, "second": tags}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	m := out.(map[string]any)
	first := m["first"].([]any)
	second := m["second"].([]any)
	first[0] = "z"
	if second[0] != "z" {
		t.Errorf("second[0] = %v, want shared backing array", second[0])
	}
}

func TestRoundTrip_Numbers(t *testing.T) {
	out, err := Unmarshal([]byte(`{"i":30,"f":1.5,"big":1e300}`))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	m := out.(map[string]any)
	if m["i"] != int64(30) {
		t.Errorf("i = %#v, want int64(30)", m["i"])
	}
	if m["f"] != 1.5 {
		t.Errorf("f = %#v, want 1.5", m["f"])
	}
	if m["big"] != 1e300 {
		t.Errorf("big = %#v, want 1e300", m["big"])
	}
}

func TestRoundTrip_LargeUnsigned(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want any
	}{
		{name: "fits int64", in: math.MaxInt64, want: int64(math.MaxInt64)},
		{name: "above int64", in: math.MaxInt64 + 1, want: uint64(math.MaxInt64 + 1)},
		{name: "max", in: math.MaxUint64, want: uint64(math.MaxUint64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(map[string]any{"n": tt.in})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			out, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := out.(map[string]any)["n"]; got != tt.want {
				t.Errorf("n = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRoundTrip_DollarKeysAreEscaped(t *testing.T) {
	in := map[string]any{
		"$ref":  "not a token",
		"$$raw": 1,
		"plain": true,
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]any{"$ref": "not a token", "$$raw": int64(1), "plain": true}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("round trip = %#v, want %#v", out, want)
	}
}

func TestDecode_CorruptTokens(t *testing.T) {
	tests := []struct {
		name string
		tree any
	}{
		{
			name: "unknown path",
			tree: map[string]any{"a": map[string]any{RefKey: `$["nope"]`}},
		},
		{
			name: "forward reference",
			tree: map[string]any{
				"a": map[string]any{RefKey: `$["b"]`},
				"b": map[string]any{"v": 1},
			},
		},
		{
			name: "out of bounds index",
			tree: map[string]any{
				"list": []any{map[string]any{"v": 1}},
				"z":    map[string]any{RefKey: `$["list"][5]`},
			},
		},
		{
			name: "non-string ref",
			tree: map[string]any{"a": map[string]any{RefKey: 12}},
		},
		{
			name: "ref with extra keys",
			tree: map[string]any{"a": map[string]any{RefKey: "$", "x": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.tree)
			if !errors.Is(err, ErrCorruptSnapshot) {
				t.Fatalf("Decode() error = %v, want ErrCorruptSnapshot", err)
			}
			var cerr *CorruptSnapshotError
			if !errors.As(err, &cerr) {
				t.Fatalf("Decode() error = %T, want *CorruptSnapshotError", err)
			}
			if cerr.Path == "" {
				t.Error("CorruptSnapshotError.Path should be set")
			}
		})
	}
}

func TestUnmarshal_InvalidJSON(t *testing.T) {
	for _, in := range []string{"", "{", "not json", `{"a":1} trailing`} {
		if _, err := Unmarshal([]byte(in)); !errors.Is(err, ErrCorruptSnapshot) {
			t.Errorf("Unmarshal(%q) error = %v, want ErrCorruptSnapshot", in, err)
		}
	}
}

func TestEncode_UnsupportedValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"func", map[string]any{"f": func() {}}},
		{"chan", map[string]any{"c": make(chan int)}},
		{"struct", map[string]any{"s": struct{ A int }{1}}},
		{"complex", []any{complex(1, 2)}},
		{"int keys", map[int]any{1: "x"}},
		{"NaN", map[string]any{"n": math.NaN()}},
		{"Inf", map[string]any{"n": math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.in)
			if !errors.Is(err, ErrSerialization) {
				t.Fatalf("Marshal() error = %v, want ErrSerialization", err)
			}
			if errors.Is(err, ErrCorruptSnapshot) {
				t.Error("serialization error must not match ErrCorruptSnapshot")
			}
		})
	}
}

func TestEncode_SerializationErrorPath(t *testing.T) {
	_, err := Encode(map[string]any{"records": map[string]any{"n1": map[string]any{"bad": func() {}}}})
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("Encode() error = %v, want *SerializationError", err)
	}
	if serr.Path != `$["records"]["n1"]["bad"]` {
		t.Errorf("Path = %q", serr.Path)
	}
	if !strings.Contains(serr.Error(), "func()") {
		t.Errorf("Error() = %q, want type name", serr.Error())
	}
}

func TestEncode_Deterministic(t *testing.T) {
	first, err := Marshal(cyclicGraph())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(cyclicGraph())
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("Marshal() not deterministic:\n%s\n%s", first, again)
		}
	}
}

func TestEncode_SelfReferentialSlice(t *testing.T) {
	s := make([]any, 2)
	s[0] = "head"
	s[1] = s
	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	list := out.([]any)
	inner := list[1].([]any)
	if reflect.ValueOf(inner).Pointer() != reflect.ValueOf(list).Pointer() {
		t.Error("self-reference not restored")
	}
}
