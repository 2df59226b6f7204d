package splitter

import (
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// evalArity is the minimum array length for EVAL/EVALSHA: cmd script
// numkeys key.
const evalArity = 4

// evalKeyIndex is the array index of the first declared key, used for
// routing. The splitter never inspects numkeys or the script body beyond
// this.
const evalKeyIndex = 3

// evalRequest passes EVAL/EVALSHA through unchanged, routed by the first
// declared key rather than array index 1.
type evalRequest struct {
	singleServerRequest
}

// evalHandler is shared by catalog.EvalCommands.
type evalHandler struct {
	pool upstream.Pool
}

func newEvalHandler(pool upstream.Pool) *evalHandler {
	return &evalHandler{pool: pool}
}

func (h *evalHandler) StartRequest(request resp.Value, callbacks Callbacks) Request {
	if len(request.Arr) < evalArity {
		wrongNumberOfArguments(callbacks, request.Arr[0].Str)
		return nil
	}

	r := &evalRequest{singleServerRequest{callbacks: callbacks}}
	r.handle = h.pool.MakeRequest(request.Arr[evalKeyIndex].Str, request, r)
	if r.handle == nil {
		r.callbacks.OnResponse(resp.NewError("no upstream host"))
		return nil
	}
	return r
}
