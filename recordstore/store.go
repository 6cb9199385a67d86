package recordstore

import (
	"fmt"
	"sort"

	"github.com/jonwraymond/graphcache/codec"
)

// Reserved record fields.
const (
	// DataIDField holds the record's own node id so it survives serialization.
	DataIDField = "__dataID__"

	// TypeNameField holds the optional type tag. Nil when unknown.
	TypeNameField = "__typename"
)

// Keys of the tree produced by EgestJSON.
const (
	recordsKey   = "records"
	rootCallsKey = "rootCalls"
)

// Record is the known data of one graph node. Values are scalars, nil,
// node-id strings, or nested maps and slices of those.
type Record map[string]any

// DataID returns the record's __dataID__ field, if it is a string.
func (r Record) DataID() string {
	id, _ := r[DataIDField].(string)
	return id
}

// TypeName returns the record's __typename field, if it is a string.
func (r Record) TypeName() string {
	name, _ := r[TypeNameField].(string)
	return name
}

// RootCallKey identifies a root call: a query root name and its argument.
type RootCallKey struct {
	Name  string
	Value string
}

// Store maps node ids to records and root calls to node ids.
type Store struct {
	records   map[string]Record
	rootCalls map[string]map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		records:   make(map[string]Record),
		rootCalls: make(map[string]map[string]string),
	}
}

// WriteRecord replaces the record at id, or inserts it. __dataID__ is set to
// id when the record does not carry one.
func (s *Store) WriteRecord(id string, rec Record) {
	if rec == nil {
		rec = Record{}
	}
	if _, ok := rec[DataIDField]; !ok {
		rec[DataIDField] = id
	}
	s.records[id] = rec
}

// WriteField sets a single field on the record at id. A missing record is
// created first, seeded with __dataID__ and __typename. An empty typeName is
// stored as nil.
func (s *Store) WriteField(id, field string, value any, typeName string) {
	rec, ok := s.records[id]
	if !ok {
		var tn any
		if typeName != "" {
			tn = typeName
		}
		rec = Record{DataIDField: id, TypeNameField: tn}
		s.records[id] = rec
	}
	rec[field] = value
}

// ReadNode returns the record stored at id. Absence is not an error.
func (s *Store) ReadNode(id string) (Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// WriteRootCall points the root call (storageKey, argValue) at id.
func (s *Store) WriteRootCall(storageKey, argValue, id string) {
	byValue, ok := s.rootCalls[storageKey]
	if !ok {
		byValue = make(map[string]string)
		s.rootCalls[storageKey] = byValue
	}
	byValue[argValue] = id
}

// DataIDForRootCall resolves a root call to a node id. The id may name a
// node the store does not hold.
func (s *Store) DataIDForRootCall(callName, callValue string) (string, bool) {
	id, ok := s.rootCalls[callName][callValue]
	return id, ok
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// RootCallLen returns the number of root call entries.
func (s *Store) RootCallLen() int {
	n := 0
	for _, byValue := range s.rootCalls {
		n += len(byValue)
	}
	return n
}

// NodeIDs returns all record ids in sorted order.
func (s *Store) NodeIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RootCalls returns every root call entry.
func (s *Store) RootCalls() map[RootCallKey]string {
	out := make(map[RootCallKey]string, s.RootCallLen())
	for name, byValue := range s.rootCalls {
		for value, id := range byValue {
			out[RootCallKey{Name: name, Value: value}] = id
		}
	}
	return out
}

// EgestJSON returns the store as a tree of plain maps, ready for
// codec.Encode. The tree aliases the live records.
func (s *Store) EgestJSON() map[string]any {
	records := make(map[string]any, len(s.records))
	for id, rec := range s.records {
		records[id] = map[string]any(rec)
	}
	rootCalls := make(map[string]any, len(s.rootCalls))
	for name, byValue := range s.rootCalls {
		m := make(map[string]any, len(byValue))
		for value, id := range byValue {
			m[value] = id
		}
		rootCalls[name] = m
	}
	return map[string]any{
		recordsKey:   records,
		rootCallsKey: rootCalls,
	}
}

// IngestJSON loads a tree produced by EgestJSON (typically after a trip
// through codec.Decode), adding to whatever the store already holds.
// A tree of the wrong shape yields a codec.CorruptSnapshotError and leaves
// the store unchanged.
func (s *Store) IngestJSON(tree any) error {
	root, ok := tree.(map[string]any)
	if !ok {
		return &codec.CorruptSnapshotError{Path: codec.RootPath, Reason: fmt.Sprintf("expected object, got %T", tree)}
	}

	records := make(map[string]Record)
	if raw, ok := root[recordsKey]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return &codec.CorruptSnapshotError{Path: "$.records", Reason: fmt.Sprintf("expected object, got %T", raw)}
		}
		for id, v := range m {
			rec, ok := v.(map[string]any)
			if !ok {
				return &codec.CorruptSnapshotError{Path: "$.records." + id, Reason: fmt.Sprintf("expected record, got %T", v)}
			}
			records[id] = Record(rec)
		}
	}

	rootCalls := make(map[string]map[string]string)
	if raw, ok := root[rootCallsKey]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return &codec.CorruptSnapshotError{Path: "$.rootCalls", Reason: fmt.Sprintf("expected object, got %T", raw)}
		}
		for name, v := range m {
			byValue, ok := v.(map[string]any)
			if !ok {
				return &codec.CorruptSnapshotError{Path: "$.rootCalls." + name, Reason: fmt.Sprintf("expected object, got %T", v)}
			}
			entries := make(map[string]string, len(byValue))
			for value, idv := range byValue {
				id, ok := idv.(string)
				if !ok {
					return &codec.CorruptSnapshotError{Path: "$.rootCalls." + name, Reason: fmt.Sprintf("expected node id, got %T", idv)}
				}
				entries[value] = id
			}
			rootCalls[name] = entries
		}
	}

	for id, rec := range records {
		s.records[id] = rec
	}
	for name, entries := range rootCalls {
		for value, id := range entries {
			s.WriteRootCall(name, value, id)
		}
	}
	return nil
}
