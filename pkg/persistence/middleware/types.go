// Package middleware wraps a ports.SnapshotStore to add behavior on the way
// in and out, such as encryption at rest or masking of sensitive values.
//
//	store = middleware.Chain(
//		middleware.NewPIIMiddleware([]string{"password", "token"}),
//		middleware.NewEncryptionMiddleware(cfg),
//	)(redisStore)
package middleware

import "github.com/aretw0/tendril/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain composes middlewares. The first one is the outermost: it sees
// snapshots before the others on Save and after them on Load.
func Chain(mws ...Middleware) Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
