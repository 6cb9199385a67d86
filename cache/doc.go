// Package cache provides GraphCache, a client-side cache of normalized graph
// records that persists itself through a storage.Adapter.
//
// A GraphCache holds a recordstore.Store behind a FIFO readers-writer lock.
// On creation it hydrates from the adapter in the background; every operation
// issued before hydration finishes waits behind it. Writes are exclusive and
// applied in admission order. Reads are shared and return copies, so callers
// never observe later mutations.
//
// Persistence is whole-snapshot: the store is encoded with the codec package
// and written under a single key. PersistPolicy decides which writes trigger
// it; Flush persists on demand.
//
// Failures degrade instead of aborting. A corrupt or unreachable snapshot
// leaves the cache empty, and a failed persist keeps the in-memory mutation.
// Both are reported as typed errors and logged through observe.
package cache
