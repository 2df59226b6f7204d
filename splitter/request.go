// Package splitter implements the RESP command splitter: it turns one
// decoded client command into one or more upstream requests against a
// sharded pool, aggregates the replies, and delivers exactly one reply back
// to the caller.
package splitter

import (
	"fmt"

	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// Callbacks is the capability object a caller supplies to receive a
// SplitRequest's single reply. The caller must keep it alive for at least
// as long as the SplitRequest it was passed to, unless that request is
// cancelled first.
type Callbacks interface {
	OnResponse(resp.Value)
}

// Request is the handle returned to callers for an in-flight command. The
// concrete types (*simpleRequest, *evalRequest, *mgetRequest) are a closed
// set constructed only by their handlers' StartRequest methods.
type Request interface {
	// Cancel guarantees no further OnResponse call reaches this request's
	// Callbacks. Safe to call at most once; calling it after the reply has
	// already been delivered is a caller bug.
	Cancel()
}

// Handler is implemented once per command category (simple, eval, mget) and
// shared across every command name that maps to it.
type Handler interface {
	StartRequest(request resp.Value, callbacks Callbacks) Request
}

// pendingChild is one fan-out child of a fragmented request. It holds a
// non-owning back-reference to its parent so it can report into the
// parent's aggregation state without the parent owning a cycle back to it.
type pendingChild struct {
	parent     childResponder
	index      int
	auxIndexes []int
	handle     upstream.Handle
}

// childResponder is implemented by fragmented request types so pendingChild
// can report results without knowing which concrete aggregation it feeds.
type childResponder interface {
	onChildResponse(value resp.Value, index int, auxIndexes []int)
}

func (c *pendingChild) OnResponse(value resp.Value) {
	c.handle = nil
	c.parent.onChildResponse(value, c.index, c.auxIndexes)
}

func (c *pendingChild) OnFailure() {
	c.handle = nil
	c.parent.onChildResponse(resp.NewError("upstream failure"), c.index, c.auxIndexes)
}

func wrongNumberOfArguments(callbacks Callbacks, cmdName []byte) {
	callbacks.OnResponse(resp.NewError(
		fmt.Sprintf("wrong number of arguments for '%s' command", cmdName)))
}
