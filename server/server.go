// Copyright © 2016 Luit van Drongelen <luit@luit.eu>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package server

import (
	"io"
	"log"
	"net"
	"time"

	"github.com/ellerbrock/rcp-splitter/parse"
	"github.com/ellerbrock/rcp-splitter/resp"
	"github.com/ellerbrock/rcp-splitter/splitter"
)

// Serve runs the command loop for one accepted client connection: decode a
// command, dispatch it through dispatcher, write back whatever reply
// arrives, and repeat until the connection errors out or the client
// disconnects. Only one command is ever in flight on a connection at a
// time, so the splitter core's single-threaded-affinity assumption holds
// without any locking on our side.
func Serve(conn *net.TCPConn, dispatcher *splitter.Dispatcher) {
	defer conn.Close()

	commands := parse.NewCommandReader(conn)
	enc := parse.NewEncoder(conn)

	for {
		cmd, err := commands.Read()
		if err != nil {
			if err != io.EOF {
				log.Printf("rcp-splitter: read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		cb := &replyWriter{enc: enc, done: make(chan struct{})}
		req := dispatcher.MakeRequest(cmd, cb)
		if req == nil {
			// The dispatcher already delivered OnResponse synchronously
			// (bad command, or every child of a fragmented request
			// resolved inline), so cb.done is already closed.
			continue
		}
		if !waitForReply(conn, req, cb.done) {
			return
		}
	}
}

// replyWriter adapts one command's splitter.Callbacks to the connection: it
// encodes the reply onto the wire and signals done so the command loop
// knows it is safe to read the next command. OnResponse may run on this
// connection's own goroutine (synchronous rejection) or on a pool worker
// goroutine (a real upstream round trip); either way it only ever touches
// this one connection's socket, never the splitter core.
type replyWriter struct {
	enc  *parse.Encoder
	done chan struct{}
}

func (c *replyWriter) OnResponse(v resp.Value) {
	if err := c.enc.Encode(v); err != nil {
		log.Printf("rcp-splitter: write error: %v", err)
	}
	close(c.done)
}

// waitForReply blocks until either the dispatcher's reply arrives on done,
// or the connection closes out from under a request that is still waiting
// on upstream children. In the latter case it cancels req so that an
// active MGET never goes on to write a reply to a socket nobody is reading
// anymore, then reports that the command loop should stop.
//
// Detecting a mid-flight disconnect means having something read conn while
// the command loop itself is blocked waiting for done. That something is a
// second goroutine; to keep it from racing the command loop's own read of
// the next command once done fires first, the read it's blocked in is
// interrupted with a zero read deadline rather than left to linger.
func waitForReply(conn *net.TCPConn, req splitter.Request, done <-chan struct{}) bool {
	peek := make(chan error, 1)
	go func() {
		var b [1]byte
		_, err := conn.Read(b[:])
		peek <- err
	}()

	select {
	case <-done:
		conn.SetReadDeadline(time.Now())
		<-peek
		conn.SetReadDeadline(time.Time{})
		return true
	case err := <-peek:
		req.Cancel()
		if err != io.EOF {
			log.Printf("rcp-splitter: connection %s closed mid-request: %v", conn.RemoteAddr(), err)
		}
		return false
	}
}
