// Package catalog holds the read-only set of Redis commands the splitter
// knows how to route, grouped by the handler category that serves them.
package catalog

// MGET is the single fragmented command this splitter fans out today.
const MGET = "mget"

// simpleCommands are routed to a single shard by the key at array index 1.
// This list covers the common single-key string, hash, list, set and
// sorted-set commands; anything not listed here (and not an eval command or
// MGET) is reported as unsupported rather than guessed at.
var simpleCommands = []string{
	"get", "set", "del", "exists", "incr", "decr", "incrby", "decrby",
	"append", "strlen", "expire", "ttl", "type", "persist", "getset",
	"setnx", "setex", "psetex",
	"hget", "hset", "hdel", "hexists", "hincrby", "hgetall", "hkeys", "hvals", "hlen",
	"lpush", "rpush", "lpop", "rpop", "llen", "lrange", "lindex", "lset", "lrem",
	"sadd", "srem", "sismember", "smembers", "scard",
	"zadd", "zscore", "zrange", "zrem", "zrank", "zcard", "zincrby",
}

// evalCommands are routed to a single shard by the key at array index 3
// (the first declared key after the script and numkeys arguments).
var evalCommands = []string{"eval", "evalsha"}

// SimpleCommands returns the simple-command set.
func SimpleCommands() []string {
	return append([]string(nil), simpleCommands...)
}

// EvalCommands returns the eval-command set.
func EvalCommands() []string {
	return append([]string(nil), evalCommands...)
}
