// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket is a CAN-over-WebSocket bridge endpoint. Each binary message
// carries one CBOR encoded frame (see MarshalBridgeFrame).
type WebSocket struct {
	url           string
	username      string
	password      string
	skipSSLVerify bool
}

// NewWebSocket returns an Interface for the bridge at wsURL. Credentials
// are sent with HTTP Basic auth when both are set.
func NewWebSocket(wsURL, username, password string, skipSSLVerify bool) *WebSocket {
	return &WebSocket{
		url:           wsURL,
		username:      username,
		password:      password,
		skipSSLVerify: skipSSLVerify,
	}
}

func (w *WebSocket) String() string {
	return fmt.Sprintf("WebSocket: %s", w.url)
}

// Open dials the bridge. Every call creates a separate connection.
func (w *WebSocket) Open(timeout time.Duration) (Bus, error) {
	u, err := url.Parse(w.url)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: w.skipSSLVerify,
		}
	}

	headers := http.Header{}
	if w.username != "" && w.password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.username + ":" + w.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, w.url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	b := &webSocketBus{
		conn:    conn,
		timeout: timeout,
		frames:  make(chan Frame, frameQueueSize),
		errs:    make(chan error, frameQueueSize),
		done:    make(chan struct{}),
	}
	go b.readPump()
	return b, nil
}

type webSocketBus struct {
	conn    *websocket.Conn
	timeout time.Duration

	frames chan Frame
	errs   chan error
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// readPump owns all reads on the connection. A read deadline would leave
// the gorilla connection unusable, so timeouts are applied on the channel.
func (b *webSocketBus) readPump() {
	defer close(b.frames)
	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			// Connection gone: closing frames reports it as a nil frame
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		f, err := UnmarshalBridgeFrame(data)
		if err != nil {
			select {
			case b.errs <- err:
			case <-b.done:
				return
			default:
			}
			continue
		}

		select {
		case b.frames <- f:
		case <-b.done:
			return
		}
	}
}

func (b *webSocketBus) Send(f Frame) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	data, err := MarshalBridgeFrame(f)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (b *webSocketBus) Receive() (*Frame, error) {
	return receiveTimeout(b.frames, b.errs, b.done, b.timeout)
}

func (b *webSocketBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.writeMu.Lock()
		b.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		b.writeMu.Unlock()
		err = b.conn.Close()
	})
	return err
}
