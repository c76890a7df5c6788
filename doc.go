/*
Package tendril is a reactive parameter runtime: it holds typed, validated
values for a declared set of parameters and keeps everything that depends on
them (visibility, enablement, computed expressions, subscribers) in sync.

It separates the immutable Schema (what parameters exist and how they are
transformed and validated) from the Context (the values of one instance, its
per-parameter state and its undo history). Adapters load schemas from Loam
repositories or files, and persist instance snapshots to files, Redis or
SQLite.

# Key Features

  - Mutation pipeline: transform, check kind, validate, commit and notify, or reject without side effects.
  - Reactive conditions: visible_when and enabled_when are re-evaluated when their dependencies change.
  - Undo and redo with merging of rapid edits, transactions and snapshots.
  - Hexagonal Architecture: the runtime is decoupled from adapters (storage, HTTP, MCP).

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/tendril"
		"github.com/aretw0/tendril/pkg/value"
	)

	func main() {
		// Reads one parameter per document from ./params
		eng, err := tendril.New("./params")
		if err != nil {
			log.Fatal(err)
		}

		inst := eng.NewInstance()
		defer inst.Close()

		ctx := context.Background()
		if err := inst.Set(ctx, "width", value.Int(800)); err != nil {
			log.Printf("rejected: %v", err)
		}
		_, _ = inst.Undo(ctx)
	}

Use Engine.Sessions to serve many instances concurrently, optionally backed
by a ports.SnapshotStore and a ports.DistributedLocker.
*/
package tendril
