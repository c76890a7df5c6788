/*
Package ports defines the driven ports (interfaces) of the tendril runtime.

These interfaces decouple instances from the places their schemas come from
and their snapshots go to.

# Key Interfaces

  - SchemaLoader: builds the immutable Schema (e.g., from a Loam directory or a file).
  - SnapshotStore: persists and loads instance snapshots.
  - DistributedLocker: coordinates access to one instance across replicas.
*/
package ports
