package splitter

import (
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// mockHandle records whether it was cancelled, for assertions.
type mockHandle struct {
	cancelled bool
}

func (h *mockHandle) Cancel() { h.cancelled = true }

// mockCall is one recorded MakeRequest invocation, with its own handle and
// callback so a test can deliver its outcome whenever it chooses.
type mockCall struct {
	routingKey []byte
	request    resp.Value
	cb         upstream.Callbacks
	handle     *mockHandle
}

// mockPool is a deterministic, single-threaded stand-in for upstream.Pool.
// It never invokes a callback on its own: tests decide exactly when and in
// what order child callbacks fire, matching the splitter's single-threaded
// cooperative concurrency model.
type mockPool struct {
	reject map[string]bool // routing keys that should return a nil handle
	calls  []*mockCall
}

func newMockPool() *mockPool {
	return &mockPool{reject: make(map[string]bool)}
}

func (p *mockPool) rejectKey(key string) {
	p.reject[key] = true
}

func (p *mockPool) MakeRequest(routingKey []byte, request resp.Value, cb upstream.Callbacks) upstream.Handle {
	if p.reject[string(routingKey)] {
		return nil
	}
	h := &mockHandle{}
	p.calls = append(p.calls, &mockCall{
		routingKey: routingKey,
		request:    request,
		cb:         cb,
		handle:     h,
	})
	return h
}

func (p *mockPool) GetHost(hashKey []byte) string {
	return "mock-host"
}

// callFor returns the recorded call whose routing key matches key.
func (p *mockPool) callFor(key string) *mockCall {
	for _, c := range p.calls {
		if string(c.routingKey) == key {
			return c
		}
	}
	return nil
}

// recordingCallbacks captures the single reply delivered to it.
type recordingCallbacks struct {
	got      resp.Value
	received bool
}

func (c *recordingCallbacks) OnResponse(v resp.Value) {
	if c.received {
		panic("splitter: OnResponse delivered more than once")
	}
	c.received = true
	c.got = v
}

func bulkCmd(parts ...string) resp.Value {
	elems := make([]resp.Value, len(parts))
	for i, p := range parts {
		elems[i] = resp.NewBulkStringFromString(p)
	}
	return resp.NewArray(elems)
}
