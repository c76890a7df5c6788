/*
Package domain contains the models shared by the runtime and its adapters.

It is kept free of I/O and of the runtime machinery itself, so that adapters
(stores, transports, metrics) can depend on it without pulling in the engine.

# Key Entities

  - ParameterState: the per-key flags and validation errors of an instance.
  - Errors: the sentinel and typed errors returned by mutations.
  - LifecycleHooks: callbacks for observability of the mutation pipeline.
*/
package domain
