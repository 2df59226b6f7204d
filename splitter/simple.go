package splitter

import (
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// simpleRequest passes a single-shard command straight through to whichever
// host owns the key at array index 1.
type simpleRequest struct {
	singleServerRequest
}

// simpleHandler is shared by every command in catalog.SimpleCommands.
type simpleHandler struct {
	pool upstream.Pool
}

func newSimpleHandler(pool upstream.Pool) *simpleHandler {
	return &simpleHandler{pool: pool}
}

func (h *simpleHandler) StartRequest(request resp.Value, callbacks Callbacks) Request {
	r := &simpleRequest{singleServerRequest{callbacks: callbacks}}

	r.handle = h.pool.MakeRequest(request.Arr[1].Str, request, r)
	if r.handle == nil {
		r.callbacks.OnResponse(resp.NewError("no upstream host"))
		return nil
	}
	return r
}
