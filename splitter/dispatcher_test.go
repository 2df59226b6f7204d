package splitter

import (
	"testing"

	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/stats"
)

func newTestDispatcher(pool *mockPool) (*Dispatcher, *stats.Counters) {
	sink := stats.NewCounters()
	return NewDispatcher(pool, sink, ""), sink
}

func TestSimpleGetHappyPath(t *testing.T) {
	pool := newMockPool()
	d, sink := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := d.MakeRequest(bulkCmd("GET", "foo"), cb)
	if req == nil {
		t.Fatal("MakeRequest returned nil, want an in-flight Request")
	}
	if cb.received {
		t.Fatal("reply delivered before pool responded")
	}

	call := pool.callFor("foo")
	if call == nil {
		t.Fatal("pool did not receive a request for key foo")
	}
	call.cb.OnResponse(resp.NewBulkStringFromString("bar"))

	if !cb.received {
		t.Fatal("reply never delivered")
	}
	if !cb.got.Equal(resp.NewBulkStringFromString("bar")) {
		t.Fatalf("reply = %v, want BulkString(bar)", cb.got)
	}
	if sink.Get("command.get.total") != 1 {
		t.Fatalf("command.get.total = %d, want 1", sink.Get("command.get.total"))
	}
}

func TestUnsupportedCommand(t *testing.T) {
	pool := newMockPool()
	d, sink := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := d.MakeRequest(bulkCmd("WATCH", "x"), cb)
	if req != nil {
		t.Fatal("MakeRequest returned non-nil for an unsupported command")
	}
	if !cb.received {
		t.Fatal("no reply delivered")
	}
	if !cb.got.Equal(resp.NewError("unsupported command 'WATCH'")) {
		t.Fatalf("reply = %v, want unsupported command error", cb.got)
	}
	if sink.Get("splitter.unsupported_command") != 1 {
		t.Fatalf("unsupported_command = %d, want 1", sink.Get("splitter.unsupported_command"))
	}
}

func TestInvalidRequestNonArray(t *testing.T) {
	pool := newMockPool()
	d, sink := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := d.MakeRequest(resp.NewInteger(5), cb)
	if req != nil {
		t.Fatal("MakeRequest returned non-nil for a non-array request")
	}
	if !cb.got.Equal(resp.NewError("invalid request")) {
		t.Fatalf("reply = %v, want invalid request error", cb.got)
	}
	if sink.Get("splitter.invalid_request") != 1 {
		t.Fatalf("invalid_request = %d, want 1", sink.Get("splitter.invalid_request"))
	}
}

func TestInvalidRequestTooShort(t *testing.T) {
	pool := newMockPool()
	d, _ := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	d.MakeRequest(bulkCmd("GET"), cb)
	if !cb.got.Equal(resp.NewError("invalid request")) {
		t.Fatalf("reply = %v, want invalid request error", cb.got)
	}
}

func TestInvalidRequestNonBulkStringElement(t *testing.T) {
	pool := newMockPool()
	d, _ := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := resp.NewArray([]resp.Value{resp.NewBulkStringFromString("GET"), resp.NewInteger(1)})
	d.MakeRequest(req, cb)
	if !cb.got.Equal(resp.NewError("invalid request")) {
		t.Fatalf("reply = %v, want invalid request error", cb.got)
	}
}

func TestEvalWrongArity(t *testing.T) {
	pool := newMockPool()
	d, sink := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := d.MakeRequest(bulkCmd("EVAL", "return 1", "0"), cb)
	if req != nil {
		t.Fatal("MakeRequest returned non-nil for a wrong-arity EVAL")
	}
	want := resp.NewError("wrong number of arguments for 'EVAL' command")
	if !cb.got.Equal(want) {
		t.Fatalf("reply = %v, want %v", cb.got, want)
	}
	if sink.Get("command.eval.total") != 1 {
		t.Fatalf("command.eval.total = %d, want 1", sink.Get("command.eval.total"))
	}
}

func TestEvalRoutesByFirstDeclaredKey(t *testing.T) {
	pool := newMockPool()
	d, _ := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := bulkCmd("EVAL", "return redis.call('GET', KEYS[1])", "1", "mykey", "extraarg")
	d.MakeRequest(req, cb)

	call := pool.callFor("mykey")
	if call == nil {
		t.Fatal("EVAL did not route by the key at index 3")
	}
	if !call.request.Equal(req) {
		t.Fatal("EVAL forwarded a modified request; must forward verbatim")
	}
}

func TestMGETMixedResults(t *testing.T) {
	pool := newMockPool()
	d, _ := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	d.MakeRequest(bulkCmd("MGET", "a", "b", "c"), cb)

	pool.callFor("a").cb.OnResponse(resp.NewBulkStringFromString("1"))
	pool.callFor("b").cb.OnResponse(resp.NewNull())
	pool.callFor("c").cb.OnFailure()

	if !cb.received {
		t.Fatal("no reply delivered after all three children settled")
	}
	want := resp.NewArray([]resp.Value{
		resp.NewBulkStringFromString("1"),
		resp.NewNull(),
		resp.NewError("upstream failure"),
	})
	if !cb.got.Equal(want) {
		t.Fatalf("reply = %v, want %v", cb.got, want)
	}
}

func TestMGETCancelMidFlight(t *testing.T) {
	pool := newMockPool()
	d, _ := newTestDispatcher(pool)
	cb := &recordingCallbacks{}

	req := d.MakeRequest(bulkCmd("MGET", "a", "b"), cb)
	if req == nil {
		t.Fatal("MakeRequest returned nil, want an in-flight Request")
	}

	req.Cancel()

	if cb.received {
		t.Fatal("OnResponse delivered despite cancellation")
	}
	for _, key := range []string{"a", "b"} {
		call := pool.callFor(key)
		if call == nil {
			t.Fatalf("no call recorded for key %s", key)
		}
		if !call.handle.cancelled {
			t.Fatalf("handle for key %s not cancelled", key)
		}
	}
}
