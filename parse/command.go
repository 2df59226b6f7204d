package parse

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ellerbrock/rcp-splitter/resp"
)

// CommandReader assembles the Items a Reader produces into whole commands.
// A real client sends a RESP array of bulk strings; redis-cli's and nc's
// telnet mode instead send one inline line split on whitespace. Either way
// CommandReader hands back a resp.Value Array of BulkString elements, the
// shape splitter.Dispatcher expects as input.
type CommandReader struct {
	r Reader
}

func NewCommandReader(r io.Reader) *CommandReader {
	return &CommandReader{r: NewReader(r)}
}

func (c *CommandReader) Read() (resp.Value, error) {
	item, err := c.r.Read()
	if err != nil {
		return resp.Value{}, err
	}
	switch item.typ {
	case ItemInline:
		return inlineCommand(item.val), nil
	case ItemArray:
		return c.readArray(item.i)
	default:
		return resp.Value{}, fmt.Errorf("rcp/parse: unexpected top-level item %s", item)
	}
}

func (c *CommandReader) readArray(n int64) (resp.Value, error) {
	if n <= 0 {
		return resp.NewArray(nil), nil
	}
	elems := make([]resp.Value, n)
	for i := int64(0); i < n; i++ {
		item, err := c.r.Read()
		if err != nil {
			return resp.Value{}, err
		}
		if item.typ != ItemBulk {
			return resp.Value{}, fmt.Errorf("rcp/parse: command array element must be a bulk string, got %s", item)
		}
		elems[i] = resp.NewBulkString(item.val)
	}
	return resp.NewArray(elems), nil
}

// inlineCommand splits a telnet-style line into bulk string elements on
// whitespace, the same fallback real Redis offers for clients that don't
// speak the array-of-bulk-strings wire format.
func inlineCommand(line []byte) resp.Value {
	fields := bytes.Fields(line)
	elems := make([]resp.Value, len(fields))
	for i, f := range fields {
		elems[i] = resp.NewBulkString(append([]byte(nil), f...))
	}
	return resp.NewArray(elems)
}

// Encoder serializes resp.Value replies onto the wire, the inverse of what
// CommandReader and Reader read off it.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(v resp.Value) error {
	_, err := e.w.Write(encodeValue(v))
	return err
}

// encodeValue renders v as RESP wire bytes. A Null value has no independent
// wire representation in RESP2; it is written as a null bulk string ($-1),
// the form every caller of Null in this repository (a missing MGET key, a
// missing GET) actually produces.
func encodeValue(v resp.Value) []byte {
	switch v.Kind {
	case resp.SimpleString:
		return Item{typ: ItemString, val: v.Str}.bytes()
	case resp.Error:
		return Item{typ: ItemError, val: v.Str}.bytes()
	case resp.Integer:
		return Item{typ: ItemInteger, i: v.Int}.bytes()
	case resp.BulkString:
		return Item{typ: ItemBulk, val: v.Str}.bytes()
	case resp.Null:
		return Item{typ: ItemBulk, val: nil}.bytes()
	case resp.Array:
		buf := Item{typ: ItemArray, i: int64(len(v.Arr))}.bytes()
		for _, elem := range v.Arr {
			buf = append(buf, encodeValue(elem)...)
		}
		return buf
	default:
		return nil
	}
}
