package memshard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ellerbrock/rcp-splitter/resp"
)

// execCommand runs one command against s and returns the RESP reply it
// would produce. Both the direct command path and the Lua redis.call shim
// go through this so EVAL sees exactly the same semantics GET/SET/etc. do.
func execCommand(s *store, name string, args []string) (resp.Value, error) {
	switch strings.ToLower(name) {
	case "get", "mget":
		// The splitter only ever sends this shard single-key MGET or GET
		// (see splitter/mget.go); both are GET-equivalent here.
		if len(args) != 1 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for '%s' command", name)
		}
		v, ok := s.get(args[0])
		if !ok {
			return resp.NewNull(), nil
		}
		return resp.NewBulkString(v), nil

	case "set":
		if len(args) < 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'set' command")
		}
		s.set(args[0], []byte(args[1]))
		return resp.NewSimpleString("OK"), nil

	case "setnx":
		if len(args) != 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'setnx' command")
		}
		if _, ok := s.get(args[0]); ok {
			return resp.NewInteger(0), nil
		}
		s.set(args[0], []byte(args[1]))
		return resp.NewInteger(1), nil

	case "getset":
		if len(args) != 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'getset' command")
		}
		old, ok := s.get(args[0])
		s.set(args[0], []byte(args[1]))
		if !ok {
			return resp.NewNull(), nil
		}
		return resp.NewBulkString(old), nil

	case "del":
		if len(args) == 0 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'del' command")
		}
		return resp.NewInteger(int64(s.del(args...))), nil

	case "exists":
		if len(args) == 0 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'exists' command")
		}
		return resp.NewInteger(int64(s.exists(args...))), nil

	case "append":
		if len(args) != 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'append' command")
		}
		return resp.NewInteger(int64(s.append(args[0], []byte(args[1])))), nil

	case "strlen":
		if len(args) != 1 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'strlen' command")
		}
		return resp.NewInteger(int64(s.strlen(args[0]))), nil

	case "incr":
		if len(args) != 1 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'incr' command")
		}
		return incrReply(s, args[0], 1)

	case "decr":
		if len(args) != 1 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'decr' command")
		}
		return incrReply(s, args[0], -1)

	case "incrby":
		if len(args) != 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'incrby' command")
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return resp.Value{}, fmt.Errorf("value is not an integer or out of range")
		}
		return incrReply(s, args[0], delta)

	case "decrby":
		if len(args) != 2 {
			return resp.Value{}, fmt.Errorf("wrong number of arguments for 'decrby' command")
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return resp.Value{}, fmt.Errorf("value is not an integer or out of range")
		}
		return incrReply(s, args[0], -delta)

	default:
		return resp.Value{}, fmt.Errorf("ERR unknown command '%s'", name)
	}
}

func incrReply(s *store, key string, delta int64) (resp.Value, error) {
	v, err := s.incrBy(key, delta)
	if err != nil {
		return resp.Value{}, err
	}
	return resp.NewInteger(v), nil
}
