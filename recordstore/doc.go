// Package recordstore holds the in-memory object graph: records keyed by node
// id plus an index from root calls to node ids.
//
// A Store has no locking of its own. Callers that share one across
// goroutines must serialize access themselves; package cache does this for
// the public API.
package recordstore
