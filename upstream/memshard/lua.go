package memshard

import (
	"crypto/sha1"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/ellerbrock/rcp-splitter/resp"
)

// luaEngine executes EVAL/EVALSHA scripts against a shard's store, offering
// the same minimal redis.call/redis.pcall surface a Lua script on a real
// Redis server would see.
type luaEngine struct {
	store   *store
	scripts sync.Map // sha1 hex -> script source
}

func newLuaEngine(s *store) *luaEngine {
	return &luaEngine{store: s}
}

func (e *luaEngine) sha1Hex(script string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(script)))
}

func (e *luaEngine) loadScript(script string) string {
	hash := e.sha1Hex(script)
	e.scripts.Store(hash, script)
	return hash
}

// eval runs script with the given KEYS/ARGV bound, returning the RESP value
// the script's final Lua-stack value converts to.
func (e *luaEngine) eval(script string, keys, args []string) (resp.Value, error) {
	e.loadScript(script) // EVALSHA can reuse what EVAL just ran, as on real Redis
	return e.run(script, keys, args)
}

// evalSHA runs a previously loaded script by its SHA1 hash.
func (e *luaEngine) evalSHA(sha1hex string, keys, args []string) (resp.Value, error) {
	script, ok := e.scripts.Load(sha1hex)
	if !ok {
		return resp.Value{}, fmt.Errorf("NOSCRIPT No matching script. Please use EVAL")
	}
	return e.run(script.(string), keys, args)
}

func (e *luaEngine) run(script string, keys, args []string) (resp.Value, error) {
	L := lua.NewState()
	defer L.Close()

	keysTable := L.NewTable()
	for i, k := range keys {
		keysTable.RawSetInt(i+1, lua.LString(k))
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, a := range args {
		argvTable.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call":  e.redisCall,
		"pcall": e.redisPCall,
	})
	L.SetGlobal("redis", redisTable)

	if err := L.DoString(script); err != nil {
		return resp.Value{}, fmt.Errorf("script execution error: %w", err)
	}

	return luaToResp(L.Get(-1)), nil
}

func (e *luaEngine) redisCall(L *lua.LState) int {
	v, err := e.callFromStack(L)
	if err != nil {
		L.Error(lua.LString(err.Error()), 1)
		return 0
	}
	L.Push(respToLua(L, v))
	return 1
}

func (e *luaEngine) redisPCall(L *lua.LState) int {
	v, err := e.callFromStack(L)
	if err != nil {
		errTable := L.NewTable()
		errTable.RawSetString("err", lua.LString(err.Error()))
		L.Push(errTable)
		return 1
	}
	L.Push(respToLua(L, v))
	return 1
}

func (e *luaEngine) callFromStack(L *lua.LState) (resp.Value, error) {
	argc := L.GetTop()
	if argc == 0 {
		return resp.Value{}, fmt.Errorf("wrong number of arguments for redis.call")
	}
	name := L.ToString(1)
	args := make([]string, argc-1)
	for i := 2; i <= argc; i++ {
		args[i-2] = L.ToString(i)
	}
	return execCommand(e.store, name, args)
}

// respToLua converts a RESP reply into the Lua value a script sees, using
// the same conventions real Redis Lua scripting does: bulk strings become
// Lua strings, simple strings become a table with an "ok" field, integers
// become Lua numbers, a RESP error becomes a table with an "err" field, and
// a RESP null becomes false.
func respToLua(L *lua.LState, v resp.Value) lua.LValue {
	switch v.Kind {
	case resp.Null:
		return lua.LFalse
	case resp.Integer:
		return lua.LNumber(v.Int)
	case resp.BulkString:
		return lua.LString(v.Str)
	case resp.SimpleString:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(v.Str))
		return t
	case resp.Error:
		t := L.NewTable()
		t.RawSetString("err", lua.LString(v.Str))
		return t
	case resp.Array:
		t := L.NewTable()
		for i, e := range v.Arr {
			t.RawSetInt(i+1, respToLua(L, e))
		}
		return t
	default:
		return lua.LFalse
	}
}

// luaToResp converts a script's returned Lua value back into a RESP reply.
func luaToResp(lv lua.LValue) resp.Value {
	switch v := lv.(type) {
	case lua.LBool:
		if !bool(v) {
			return resp.NewNull()
		}
		return resp.NewInteger(1)
	case lua.LString:
		return resp.NewBulkStringFromString(string(v))
	case lua.LNumber:
		return resp.NewInteger(int64(v))
	case *lua.LNilType:
		return resp.NewNull()
	case *lua.LTable:
		if errVal := v.RawGetString("err"); errVal != lua.LNil {
			return resp.NewError(errVal.String())
		}
		if okVal := v.RawGetString("ok"); okVal != lua.LNil {
			return resp.NewSimpleString(okVal.String())
		}
		var elems []resp.Value
		v.ForEach(func(_, val lua.LValue) {
			elems = append(elems, luaToResp(val))
		})
		return resp.NewArray(elems)
	default:
		return resp.NewNull()
	}
}
