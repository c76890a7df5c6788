/*
Package session manages the live instances of a schema.

It hands each instance to one caller at a time, keyed by instance ID, and
optionally persists instances through a ports.SnapshotStore. A distributed
locker extends the exclusivity across replicas that share the store.
*/
package session
