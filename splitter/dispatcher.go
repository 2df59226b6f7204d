package splitter

import (
	"fmt"
	"strings"

	"github.com/ellerbrock/rcp-splitter/catalog"
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/stats"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

// handlerEntry pairs a shared handler with the counter it bumps on every
// dispatch, so the hot path is a single map lookup.
type handlerEntry struct {
	handler  Handler
	statName string
}

// Dispatcher validates an incoming command, classifies it via the catalog,
// and delegates to the matching handler. It never retains request state;
// each Request returned from MakeRequest is self-owning.
type Dispatcher struct {
	commandMap map[string]handlerEntry
	sink       stats.Sink
	statPrefix string
}

// DefaultStatPrefix is the counter namespace NewDispatcher uses when no
// prefix is given: "splitter.unsupported_command" and
// "splitter.invalid_request". Per-command counters such as
// "command.get.total" are not under this prefix.
const DefaultStatPrefix = "splitter"

// NewDispatcher builds one shared handler per category (simple, eval, mget)
// bound to pool, and populates the command map by walking the catalog.
// statPrefix names the dispatcher's own counters
// (statPrefix+".unsupported_command", statPrefix+".invalid_request"); an
// empty statPrefix falls back to DefaultStatPrefix. Per-command counters
// are always named "command.<lowername>.total" regardless of statPrefix.
func NewDispatcher(pool upstream.Pool, sink stats.Sink, statPrefix string) *Dispatcher {
	if statPrefix == "" {
		statPrefix = DefaultStatPrefix
	}
	d := &Dispatcher{
		commandMap: make(map[string]handlerEntry),
		sink:       sink,
		statPrefix: statPrefix,
	}

	simple := newSimpleHandler(pool)
	for _, name := range catalog.SimpleCommands() {
		d.addHandler(name, simple)
	}

	eval := newEvalHandler(pool)
	for _, name := range catalog.EvalCommands() {
		d.addHandler(name, eval)
	}

	d.addHandler(catalog.MGET, newMgetHandler(pool))

	return d
}

func (d *Dispatcher) addHandler(name string, handler Handler) {
	lower := toLowerASCII(name)
	d.commandMap[lower] = handlerEntry{
		handler:  handler,
		statName: fmt.Sprintf("command.%s.total", lower),
	}
}

// MakeRequest validates request, dispatches it to the matching handler, and
// returns the resulting Request (nil if the reply was already delivered
// synchronously).
func (d *Dispatcher) MakeRequest(request resp.Value, callbacks Callbacks) Request {
	if !isValidCommand(request) {
		d.sink.Incr(d.statPrefix + ".invalid_request")
		callbacks.OnResponse(resp.NewError("invalid request"))
		return nil
	}

	lower := toLowerASCII(string(request.Arr[0].Str))
	entry, ok := d.commandMap[lower]
	if !ok {
		d.sink.Incr(d.statPrefix + ".unsupported_command")
		callbacks.OnResponse(resp.NewError(
			fmt.Sprintf("unsupported command '%s'", request.Arr[0].Str)))
		return nil
	}

	d.sink.Incr(entry.statName)
	return entry.handler.StartRequest(request, callbacks)
}

func isValidCommand(request resp.Value) bool {
	if request.Kind != resp.Array || len(request.Arr) < 2 {
		return false
	}
	for _, v := range request.Arr {
		if v.Kind != resp.BulkString {
			return false
		}
	}
	return true
}

// asciiLower is a 256-byte case table; locale-independent by construction,
// unlike strings.ToLower.
var asciiLower [256]byte

func init() {
	for i := 0; i < 256; i++ {
		asciiLower[i] = byte(i)
	}
	for c := byte('A'); c <= 'Z'; c++ {
		asciiLower[c] = c + ('a' - 'A')
	}
}

func toLowerASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteByte(asciiLower[s[i]])
	}
	return b.String()
}
