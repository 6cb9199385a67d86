// Package codec converts possibly-cyclic object graphs into an acyclic,
// JSON-serializable tree and back.
//
// The first time a map or slice instance is reached during a depth-first
// walk it is emitted inline. Every later visit of the same instance is
// replaced by a back-reference token:
//
//	{"$ref": "$[\"records\"][\"n1\"]"}
//
// Decode walks the tree in the same order, registering each container at its
// path before descending, so tokens always resolve to an instance that has
// already been materialized. Cycles and shared references come back with the
// same identity they had before encoding.
//
// Map keys are visited in sorted order on both sides, which keeps the output
// deterministic and makes the first-occurrence rule well defined.
package codec
