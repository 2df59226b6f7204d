package splitter

import (
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// mgetRequest fans MGET out into one single-key child per input key and
// reassembles the replies into a single Array reply in input order.
type mgetRequest struct {
	callbacks       Callbacks
	pendingRequests []pendingChild
	pendingResponse resp.Value // Array, len == number of input keys
	numPending      int
	errorCount      int
}

// mgetHandler is bound to catalog.MGET.
type mgetHandler struct {
	pool upstream.Pool
}

func newMgetHandler(pool upstream.Pool) *mgetHandler {
	return &mgetHandler{pool: pool}
}

func (h *mgetHandler) StartRequest(request resp.Value, callbacks Callbacks) Request {
	numKeys := len(request.Arr) - 1

	slots := make([]resp.Value, numKeys)
	for i := range slots {
		slots[i] = resp.NewNull()
	}

	r := &mgetRequest{
		callbacks:       callbacks,
		pendingRequests: make([]pendingChild, 0, numKeys),
		pendingResponse: resp.NewArray(slots),
		numPending:      numKeys,
	}

	for i := 1; i < len(request.Arr); i++ {
		key := request.Arr[i].Str
		index := i - 1

		r.pendingRequests = append(r.pendingRequests, pendingChild{
			parent:     r,
			index:      index,
			auxIndexes: []int{index},
		})
		child := &r.pendingRequests[len(r.pendingRequests)-1]

		subCommand := resp.NewArray([]resp.Value{
			resp.NewBulkStringFromString("MGET"),
			resp.NewBulkString(key),
		})

		handle := h.pool.MakeRequest(key, subCommand, child)
		if handle == nil {
			child.OnResponse(resp.NewError("no upstream host"))
			continue
		}
		child.handle = handle
	}

	if r.numPending > 0 {
		return r
	}
	return nil
}

// onChildResponse implements childResponder. It is called at most once per
// pendingRequests slot, either from a pool callback or synchronously from
// StartRequest when the pool rejected a key outright.
func (r *mgetRequest) onChildResponse(value resp.Value, index int, auxIndexes []int) {
	slot := &r.pendingResponse.Arr[index]

	switch value.Kind {
	case resp.BulkString, resp.Error:
		r.errorCount++
		slot.Kind = value.Kind
		slot.Str = value.Str
	case resp.Integer, resp.SimpleString:
		r.errorCount++
		slot.Kind = resp.Error
		slot.Str = []byte("upstream protocol error")
	case resp.Array:
		for j := 0; j < len(auxIndexes); j++ {
			elem := value.Arr[j]
			if elem.Kind != resp.Null {
				slot.Kind = elem.Kind
				slot.Str = elem.Str
			}
		}
	case resp.Null:
		// leave the slot as the Null it was initialised to
	}

	if r.numPending <= 0 {
		panic("splitter: mgetRequest.onChildResponse called with numPending <= 0")
	}
	r.numPending--
	if r.numPending == 0 {
		r.callbacks.OnResponse(r.pendingResponse)
	}
}

func (r *mgetRequest) Cancel() {
	for i := range r.pendingRequests {
		child := &r.pendingRequests[i]
		if child.handle != nil {
			child.handle.Cancel()
			child.handle = nil
		}
	}
}
