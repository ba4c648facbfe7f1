package middleware

import "github.com/aretw0/botcanvas/pkg/ports"

// Middleware allows wrapping a GraphStore to add behavior.
type Middleware func(ports.GraphStore) ports.GraphStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.GraphStore, mws ...Middleware) ports.GraphStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
