// Package memory provides the key/value storage behind shopping carts.
//
// Three providers implement the Memory interface:
//
//   - InMemoryStore: a process-local map, the default for development and tests
//   - RedisMemory: shared storage for multiple service replicas
//   - BadgerMemory: an embedded on-disk store for single-node deployments
//
// Values are opaque byte slices; callers own the encoding. Missing and
// expired keys both surface as ErrKeyNotFound.
package memory
