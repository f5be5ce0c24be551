// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses an RWMutex, this store uses sync.Map:
// the key space (all stages) is known up front while values change often, and
// each worker writes keys no other worker touches. That is the access pattern
// sync.Map is optimised for.
//
// State lives only as long as the session. Output tables are kept by
// reference, so downstream runners must treat them as read-only.
package inmemorystore
