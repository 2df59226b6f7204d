package memshard

import (
	"fmt"
	"strconv"
	"sync"
)

// store is one shard's keyspace: a plain map guarded by a mutex, the same
// shape as a single bucket of a sharded in-memory cache. Sharding across
// stores (not within one) is what spreads load — see pool.go.
type store struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newStore() *store {
	return &store{data: make(map[string][]byte)}
}

// get returns (value, true) on a hit, or (nil, false) on a miss.
func (s *store) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (s *store) set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
}

func (s *store) del(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			n++
		}
	}
	return n
}

func (s *store) exists(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			n++
		}
	}
	return n
}

func (s *store) append(key string, suffix []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append(s.data[key], suffix...)
	return len(s.data[key])
}

func (s *store) strlen(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[key])
}

// incrBy adds delta to the integer stored at key (defaulting to 0) and
// returns the new value, or an error if the existing value is not an
// integer — matching Redis's own INCR/INCRBY semantics.
func (s *store) incrBy(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := int64(0)
	if v, ok := s.data[key]; ok {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value is not an integer or out of range")
		}
		cur = parsed
	}
	cur += delta
	s.data[key] = []byte(strconv.FormatInt(cur, 10))
	return cur, nil
}
