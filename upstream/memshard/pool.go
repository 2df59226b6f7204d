// Package memshard implements upstream.Pool entirely in memory, with no
// network hop to a real Redis server. It exists for local development and
// the test suite: the same rendezvous-hash routing and asynchronous
// worker-goroutine delivery shape as upstream/redisshard, but backed by a
// map instead of a TCP connection, and with EVAL/EVALSHA served by an
// embedded Lua interpreter instead of a round trip to a scripting engine.
package memshard

import (
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

var (
	errWrongArgs  = errors.New("wrong number of arguments for 'eval' command")
	errNotInteger = errors.New("value is not an integer or out of range")
)

const (
	reqPending   int32 = 0
	reqDelivered int32 = 1
	reqCancelled int32 = 2
)

type asyncRequest struct {
	command resp.Value
	state   *int32
	cb      upstream.Callbacks
}

// shard is one bucket of keyspace: its own store, its own Lua engine (a
// script's KEYS may only ever name keys that already hash to this shard),
// and a worker goroutine draining a single request channel so that no two
// commands on the same shard ever run concurrently against its store.
type shard struct {
	name  string
	store *store
	lua   *luaEngine
	reqCh chan *asyncRequest
}

func newShard(name string) *shard {
	st := newStore()
	s := &shard{
		name:  name,
		store: st,
		lua:   newLuaEngine(st),
		reqCh: make(chan *asyncRequest, 64),
	}
	go s.run()
	return s
}

func (s *shard) run() {
	for req := range s.reqCh {
		v := execute(s, req.command)
		deliver(req, v)
	}
}

func (s *shard) close() {
	close(s.reqCh)
}

// execute runs one full command array against the shard and returns the
// RESP reply, routing EVAL/EVALSHA through the shard's Lua engine and
// everything else through execCommand.
func execute(s *shard, command resp.Value) resp.Value {
	name := strings.ToLower(string(command.Arr[0].Str))
	args := make([]string, len(command.Arr)-1)
	for i, elem := range command.Arr[1:] {
		args[i] = string(elem.Str)
	}

	switch name {
	case "eval":
		v, err := runScript(s.lua.eval, args)
		if err != nil {
			return resp.NewError(err.Error())
		}
		return v
	case "evalsha":
		v, err := runScript(s.lua.evalSHA, args)
		if err != nil {
			return resp.NewError(err.Error())
		}
		return v
	default:
		v, err := execCommand(s.store, name, args)
		if err != nil {
			return resp.NewError(err.Error())
		}
		return v
	}
}

// runScript splits an EVAL/EVALSHA argument list (script-or-sha, numkeys,
// keys..., argv...) and invokes run with the resulting KEYS/ARGV.
func runScript(run func(string, []string, []string) (resp.Value, error), args []string) (resp.Value, error) {
	if len(args) < 2 {
		return resp.Value{}, errWrongArgs
	}
	scriptOrSHA := args[0]
	numkeys, err := strconv.Atoi(args[1])
	if err != nil || numkeys < 0 {
		return resp.Value{}, errNotInteger
	}
	rest := args[2:]
	if numkeys > len(rest) {
		return resp.Value{}, errWrongArgs
	}
	keys := rest[:numkeys]
	scriptArgs := rest[numkeys:]
	return run(scriptOrSHA, keys, scriptArgs)
}

// deliver transitions req from pending to delivered and, only if that
// transition succeeds, hands the reply to the caller's callbacks. A handle
// cancelled concurrently has already moved the state to reqCancelled, so
// the CompareAndSwap fails and the reply is dropped: Cancel() guarantees no
// further OnResponse fires once it returns.
func deliver(req *asyncRequest, v resp.Value) {
	if atomic.CompareAndSwapInt32(req.state, reqPending, reqDelivered) {
		req.cb.OnResponse(v)
	}
}

// handle is the upstream.Handle returned to the splitter core for one
// in-flight request. Cancel races the worker goroutine via a three-state
// atomic rather than a lock: whichever side performs the CompareAndSwap
// first wins, and the loser's action becomes a no-op.
type handle struct {
	state *int32
}

func (h *handle) Cancel() {
	atomic.CompareAndSwapInt32(h.state, reqPending, reqCancelled)
}

// Pool routes requests to shards by rendezvous hashing over xxHash, the
// same scheme upstream/redisshard uses against real Redis instances.
type Pool struct {
	shards map[string]*shard
	ring   *rendezvous.Rendezvous
}

// New builds a Pool with one in-memory shard per name in shardNames.
func New(shardNames []string) *Pool {
	shards := make(map[string]*shard, len(shardNames))
	for _, name := range shardNames {
		shards[name] = newShard(name)
	}
	ring := rendezvous.New(shardNames, xxhash.Sum64String)
	return &Pool{shards: shards, ring: ring}
}

// Close stops every shard's worker goroutine. Only safe once no further
// MakeRequest calls will be made.
func (p *Pool) Close() {
	for _, s := range p.shards {
		s.close()
	}
}

func (p *Pool) GetHost(hashKey []byte) string {
	return p.ring.Lookup(string(hashKey))
}

func (p *Pool) MakeRequest(routingKey []byte, request resp.Value, cb upstream.Callbacks) upstream.Handle {
	host := p.ring.Lookup(string(routingKey))
	s := p.shards[host]

	state := new(int32)
	s.reqCh <- &asyncRequest{command: request, state: state, cb: cb}
	return &handle{state: state}
}
