// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// bridgeReply is what the test bridge does with one client message. A nil
// reply echoes the message back.
type bridgeReply func(conn *websocket.Conn, msg []byte) error

func rawReply(messageType int, data []byte) bridgeReply {
	return func(conn *websocket.Conn, msg []byte) error {
		return conn.WriteMessage(messageType, data)
	}
}

// dropReply closes the TCP connection without a close handshake
func dropReply(conn *websocket.Conn, msg []byte) error {
	return conn.Close()
}

// newTestBridge starts a bridge answering client messages with replies in
// order. Requests without the given Basic auth credentials are rejected.
func newTestBridge(t *testing.T, user, pass string, replies ...bridgeReply) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; ; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := bridgeReply(nil)
			if i < len(replies) {
				reply = replies[i]
			}
			if reply == nil {
				err = conn.WriteMessage(websocket.BinaryMessage, msg)
			} else {
				err = reply(conn, msg)
			}
			if err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func openTestBridge(t *testing.T, url string) Bus {
	t.Helper()
	bus, err := NewWebSocket(url, "", "", false).Open(2 * time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

var testBridgeFrame = Frame{ID: 0xFF0001, Extended: true, Len: 8, Data: [8]byte{0xA8, 0x40, 1, 2, 3, 4, 5, 6}}

func TestWebSocketBus_Echo(t *testing.T) {
	bus := openTestBridge(t, newTestBridge(t, "", ""))

	if err := bus.Send(testBridgeFrame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	f, err := bus.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if f == nil || *f != testBridgeFrame {
		t.Errorf("Receive() = %v, want %v", f, testBridgeFrame)
	}
}

func TestWebSocketBus_SkipsTextMessages(t *testing.T) {
	payload, err := MarshalBridgeFrame(testBridgeFrame)
	if err != nil {
		t.Fatalf("MarshalBridgeFrame failed: %v", err)
	}
	textThenFrame := func(conn *websocket.Conn, msg []byte) error {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, payload)
	}
	bus := openTestBridge(t, newTestBridge(t, "", "", textThenFrame))

	if err := bus.Send(testBridgeFrame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	f, err := bus.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if *f != testBridgeFrame {
		t.Errorf("Receive() = %v, want %v", f, testBridgeFrame)
	}
}

func TestWebSocketBus_DecodeErrorThenFrame(t *testing.T) {
	bus := openTestBridge(t, newTestBridge(t, "", "",
		rawReply(websocket.BinaryMessage, []byte{0xFF, 0x00}),
		nil,
	))

	if err := bus.Send(testBridgeFrame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := bus.Receive(); err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive() error = %v, want decode error", err)
	}

	// The connection stays usable after a bad message
	if err := bus.Send(testBridgeFrame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	f, err := bus.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if *f != testBridgeFrame {
		t.Errorf("Receive() = %v, want %v", f, testBridgeFrame)
	}
}

func TestWebSocketBus_Timeout(t *testing.T) {
	url := newTestBridge(t, "", "")
	bus, err := NewWebSocket(url, "", "", false).Open(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer bus.Close()

	if _, err := bus.Receive(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Receive() error = %v, want ErrTimeout", err)
	}
}

func TestWebSocketBus_ServerDropIsLostConnection(t *testing.T) {
	bus := openTestBridge(t, newTestBridge(t, "", "", dropReply))

	if err := bus.Send(testBridgeFrame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	f, err := bus.Receive()
	if err != nil || f != nil {
		t.Errorf("Receive() = (%v, %v), want (nil, nil)", f, err)
	}
}

func TestWebSocketBus_Close(t *testing.T) {
	bus := openTestBridge(t, newTestBridge(t, "", ""))

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := bus.Send(testBridgeFrame); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestWebSocket_BasicAuth(t *testing.T) {
	url := newTestBridge(t, "admin", "secret")

	bus, err := NewWebSocket(url, "admin", "secret", false).Open(time.Second)
	if err != nil {
		t.Fatalf("Open with credentials failed: %v", err)
	}
	bus.Close()

	if _, err := NewWebSocket(url, "admin", "wrong", false).Open(time.Second); err == nil {
		t.Error("Open with wrong password succeeded")
	}
}

func TestWebSocket_InvalidScheme(t *testing.T) {
	if _, err := NewWebSocket("http://localhost/can", "", "", false).Open(time.Second); err == nil {
		t.Error("Open with http:// succeeded, want error")
	}
}
