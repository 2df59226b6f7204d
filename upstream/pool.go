// Package upstream defines the contract the command splitter depends on to
// reach a sharded pool of Redis servers. The pool itself — hash-ring
// selection, socket ownership, connection lifecycle — is implemented
// elsewhere (see upstream/redisshard and upstream/memshard); this package
// only names the interface.
package upstream

import "github.com/ellerbrock/rcp-splitter/resp"

// Handle is an opaque, cancellable token for one in-flight child request.
// Cancel guarantees no further callback fires after it returns.
type Handle interface {
	Cancel()
}

// Callbacks receives the outcome of a single child request. At most one of
// OnResponse or OnFailure is called per Handle, and neither is called after
// Cancel.
type Callbacks interface {
	OnResponse(resp.Value)
	OnFailure()
}

// Pool is the connection pool's contract with the splitter.
type Pool interface {
	// MakeRequest enqueues request, routed by routingKey, and returns a live
	// Handle, or nil if no upstream host could be selected for routingKey.
	MakeRequest(routingKey []byte, request resp.Value, cb Callbacks) Handle

	// GetHost reports which upstream host a given hash key would route to.
	// Debug/logging only; never called on the request hot path.
	GetHost(hashKey []byte) string
}
