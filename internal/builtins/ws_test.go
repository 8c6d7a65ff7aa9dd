package builtins

import (
	"strings"
	"testing"

	"burlap/internal/vm"
)

func TestWebsocketSendOnUnknownConnectionErrors(t *testing.T) {
	_, err := runErr(t, RegisterNetwork, `ws_send("no-such-conn", "hi");`)
	if err == nil {
		t.Fatal("ws_send on an unregistered connection id should error")
	}
	if !strings.Contains(err.Error(), "unknown websocket connection") {
		t.Errorf("error = %v, want 'unknown websocket connection'", err)
	}
}

func TestRegisterNetworkEnablesExtension(t *testing.T) {
	v := vm.New(nil)
	RegisterNetwork(v)
	if !v.ExtensionEnabled("network") {
		t.Error("RegisterNetwork should enable the network extension")
	}

	out := run(t, RegisterNetwork, `print(1);`)
	if strings.TrimSpace(out) != "1" {
		t.Errorf("output = %q, want 1", out)
	}
}
