// Package redisshard implements upstream.Pool against real Redis instances
// using go-redis, one client per shard. Requests are handed to a per-shard
// worker goroutine over a buffered channel, the same shape
// Qiware-codis's BackendConn uses to serialize all traffic to one backend
// through a single input queue; here the backend is a pooled go-redis
// client instead of a hand-rolled RESP connection.
package redisshard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/redis/go-redis/v9"

	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/upstream"
)

const (
	reqPending   int32 = 0
	reqDelivered int32 = 1
	reqCancelled int32 = 2

	requestTimeout = 2 * time.Second
)

type asyncRequest struct {
	command resp.Value
	state   *int32
	cb      upstream.Callbacks
}

// shard owns one go-redis client and the single worker goroutine allowed to
// use it, so commands against the same shard are never issued concurrently
// from two different requests racing the connection pool in confusing ways.
type shard struct {
	addr   string
	client *redis.Client
	reqCh  chan *asyncRequest
}

func newShard(addr string) *shard {
	s := &shard{
		addr:   addr,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		reqCh:  make(chan *asyncRequest, 64),
	}
	go s.run()
	return s
}

func (s *shard) run() {
	for req := range s.reqCh {
		v, transportFailure := s.execute(req.command)
		deliver(req, v, transportFailure)
	}
}

func (s *shard) close() {
	close(s.reqCh)
	s.client.Close()
}

func (s *shard) execute(command resp.Value) (resp.Value, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	args := make([]interface{}, len(command.Arr))
	for i, e := range command.Arr {
		args[i] = string(e.Str)
	}

	v, err := s.client.Do(ctx, args...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return resp.NewNull(), false
		}
		if isTransportError(err) {
			return resp.Value{}, true
		}
		return resp.NewError(err.Error()), false
	}
	return convertReply(v), false
}

// isTransportError reports whether err reflects a failure to talk to the
// shard at all (dial failure, timeout, connection reset) as opposed to a
// well-formed RESP error reply from Redis itself. Only the former becomes
// OnFailure; the latter is a normal OnResponse carrying an Error value,
// exactly as a real Redis error reply would be.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// convertReply maps a go-redis reply value back onto the RESP model the
// splitter core speaks. go-redis's Do already collapsed SimpleString and
// BulkString into a plain Go string, so both come back as resp.BulkString;
// a status reply such as SET's OK therefore reaches the client as a bulk
// string, and MGET never sees a SimpleString from this pool.
func convertReply(v interface{}) resp.Value {
	switch t := v.(type) {
	case nil:
		return resp.NewNull()
	case int64:
		return resp.NewInteger(t)
	case string:
		return resp.NewBulkStringFromString(t)
	case []byte:
		return resp.NewBulkString(t)
	case float64:
		return resp.NewBulkStringFromString(strconv.FormatFloat(t, 'f', -1, 64))
	case []interface{}:
		elems := make([]resp.Value, len(t))
		for i, e := range t {
			elems[i] = convertReply(e)
		}
		return resp.NewArray(elems)
	default:
		return resp.NewBulkStringFromString(fmt.Sprintf("%v", t))
	}
}

func deliver(req *asyncRequest, v resp.Value, transportFailure bool) {
	if !atomic.CompareAndSwapInt32(req.state, reqPending, reqDelivered) {
		return
	}
	if transportFailure {
		req.cb.OnFailure()
		return
	}
	req.cb.OnResponse(v)
}

// handle is the upstream.Handle returned to the splitter core. Cancel races
// the shard's worker goroutine via a CompareAndSwap on a shared atomic: the
// side that wins decides whether OnResponse/OnFailure ever fires.
type handle struct {
	state *int32
}

func (h *handle) Cancel() {
	atomic.CompareAndSwapInt32(h.state, reqPending, reqCancelled)
}

// Pool routes requests to shards by rendezvous hashing over xxHash, mapping
// each shard name to a "host:port" address reachable by go-redis.
type Pool struct {
	shards map[string]*shard
	ring   *rendezvous.Rendezvous
}

// New builds a Pool with one shard per address in addrs.
func New(addrs []string) *Pool {
	shards := make(map[string]*shard, len(addrs))
	for _, addr := range addrs {
		shards[addr] = newShard(addr)
	}
	ring := rendezvous.New(addrs, xxhash.Sum64String)
	return &Pool{shards: shards, ring: ring}
}

// Close shuts down every shard's client and worker goroutine. Only safe
// once no further MakeRequest calls will be made.
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
