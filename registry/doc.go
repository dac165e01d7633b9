// Package registry tracks a named set of network interfaces and answers, on
// the packet path, whether an interface index belongs to that set.
//
// The registry keeps two views of the same entries. The store holds every
// managed interface by name in insertion order and backs the
// administrative operations and the introspection table. The binding index
// is a fixed-size hash table holding only the entries currently bound to a
// live device, keyed by interface index.
//
// Mutations take a single update lock and change both views together.
// Lookups take no lock: they register with a grace-period domain (see
// package rcu) and walk the binding index directly. Objects unlinked by a
// mutation are handed to a reclaimer that recycles them only after every
// lookup that might still see them has finished.
package registry
