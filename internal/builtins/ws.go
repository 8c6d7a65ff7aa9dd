// Package builtins registers the optional, feature-gated builtins named
// in SPEC_FULL.md §B's domain stack: websocket and database access, and
// hashing. Unlike the core catalogue in internal/vm, these pull in real
// third-party clients and are only wired in when a host opts into the
// "network" / "database" / "crypto" extension names. The package also holds
// __burlap_print (debug.go), which the CLI registers unconditionally.
package builtins

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"burlap/internal/value"
	"burlap/internal/vm"
	"burlap/internal/vmerrors"
)

type wsRegistry struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
	next  int
}

var ws = &wsRegistry{conns: make(map[string]*websocket.Conn)}

func (r *wsRegistry) add(c *websocket.Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := fmt.Sprintf("ws%d", r.next)
	r.conns[id] = c
	return id
}

func (r *wsRegistry) get(id string) (*websocket.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *wsRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// RegisterNetwork wires ws_connect/ws_send/ws_recv/ws_close, grounded in
// the teacher's network.WebSocketConnect/Send/Close but rebuilt against
// burlap Values instead of the security-module's connection registry.
func RegisterNetwork(v *vm.VM) {
	v.EnableExtension("network")

	v.AddBuiltin("ws_connect", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, vmerrors.New("ws_connect(url) takes 1 argument")
		}
		dialer := websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		conn, _, err := dialer.Dial(args[0].ToString(), nil)
		if err != nil {
			return value.Value{}, vmerrors.New("ws_connect failed: %s", err.Error())
		}
		return value.Str(ws.add(conn)), nil
	})

	v.AddBuiltin("ws_send", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Value{}, vmerrors.New("ws_send(id, message) takes 2 arguments")
		}
		conn, ok := ws.get(args[0].ToString())
		if !ok {
			return value.Value{}, vmerrors.New("unknown websocket connection '%s'", args[0].ToString())
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(args[1].ToString())); err != nil {
			return value.Value{}, vmerrors.New("ws_send failed: %s", err.Error())
		}
		return value.Bool(true), nil
	})

	v.AddBuiltin("ws_recv", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, vmerrors.New("ws_recv(id) takes 1 argument")
		}
		conn, ok := ws.get(args[0].ToString())
		if !ok {
			return value.Value{}, vmerrors.New("unknown websocket connection '%s'", args[0].ToString())
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return value.Value{}, vmerrors.New("ws_recv failed: %s", err.Error())
		}
		return value.Str(string(data)), nil
	})

	v.AddBuiltin("ws_close", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, vmerrors.New("ws_close(id) takes 1 argument")
		}
		id := args[0].ToString()
		conn, ok := ws.get(id)
		if !ok {
			return value.Value{}, vmerrors.New("unknown websocket connection '%s'", id)
		}
		err := conn.Close()
		ws.remove(id)
		if err != nil {
			return value.Value{}, vmerrors.New("ws_close failed: %s", err.Error())
		}
		return value.None(), nil
	})
}
