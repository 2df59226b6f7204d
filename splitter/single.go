package splitter

import (
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// singleServerRequest is the shared shape behind simpleRequest and
// evalRequest: one child handle, forwarded verbatim, with the generic
// failure-to-RESP-error translation both variants need.
type singleServerRequest struct {
	callbacks Callbacks
	handle    upstream.Handle
}

func (r *singleServerRequest) OnResponse(value resp.Value) {
	r.handle = nil
	r.callbacks.OnResponse(value)
}

func (r *singleServerRequest) OnFailure() {
	r.handle = nil
	r.callbacks.OnResponse(resp.NewError("upstream failure"))
}

func (r *singleServerRequest) Cancel() {
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
}
