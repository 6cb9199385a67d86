// Package storage defines the durable backing store a graph cache persists
// its snapshot to, plus the adapters and decorators that ship with it.
//
// An Adapter is a string key-value store with three asynchronous
// operations. The cache writes one opaque blob under one key, so adapters
// need no listing, batching or transactions.
//
// # Adapters
//
//   - [MemoryAdapter]: process-local map, the default when no adapter is
//     configured.
//   - [FileAdapter]: one file per key under a root directory, replaced
//     atomically on write.
//   - storage/sqlitekv, storage/pgkv and storage/s3kv: database and object
//     store backends.
//
// # Decorators
//
//   - [Resilient]: wraps every call in a resilience.Executor (timeout,
//     retry, circuit breaker).
//   - [Sealed]: signs blobs as HS256 JWS so tampered snapshots are
//     rejected on read.
//
// # Errors
//
// Backend failures are reported as *OpError values that match
// [ErrUnavailable] with errors.Is. A missing key is not an error:
// GetItem returns ok=false.
package storage
