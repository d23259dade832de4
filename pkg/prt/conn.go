// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Conn is a byte stream to the RS-485 line.
//
// A read that hits the deadline must return an error matching
// os.ErrDeadlineExceeded; any other read or write error is treated as a
// broken connection.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
}

// inputResetter is implemented by connections that can discard buffered
// input without reading it
type inputResetter interface {
	ResetInputBuffer() error
}

// Dialer opens a new connection. The Transport calls it at construction
// and again whenever the line has to be reopened.
type Dialer func() (Conn, error)

// SerialConnection wraps a local serial port
type SerialConnection struct {
	port     serial.Port
	deadline time.Time
}

// OpenSerial opens a serial device with the thermostat line settings
func OpenSerial(device string) (*SerialConnection, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}

	return &SerialConnection{port: port}, nil
}

// Read reads from the port, honouring the deadline set by SetReadDeadline
func (s *SerialConnection) Read(p []byte) (int, error) {
	timeout := ReadTimeout
	if !s.deadline.IsZero() {
		timeout = time.Until(s.deadline)
		if timeout <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
	}
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}

	n, err := s.port.Read(p)
	if n == 0 && err == nil {
		// go.bug.st/serial reports a timeout as an empty read
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// ResetInputBuffer drops bytes the port has received but not yet delivered
func (s *SerialConnection) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// SetReadDeadline records the deadline applied to subsequent reads
func (s *SerialConnection) SetReadDeadline(t time.Time) error {
	s.deadline = t
	return nil
}

// OpenTCP connects to a raw TCP-to-serial bridge
func OpenTCP(address string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	conn, err := d.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge %s: %w", address, err)
	}
	return conn, nil
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketConnection carries the line over binary WebSocket messages.
// A reader goroutine queues incoming messages so that reads can time out
// without tearing down the socket.
type WebSocketConnection struct {
	conn     *websocket.Conn
	frames   chan []byte
	done     chan struct{}
	buf      []byte
	deadline time.Time

	mu      sync.Mutex
	readErr error
	once    sync.Once
}

// OpenWebSocket opens a WebSocket bridge connection with optional HTTP Basic auth
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocketConnection, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: DefaultDialTimeout,
	}
	if skipSSLVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	w := &WebSocketConnection{
		conn:   conn,
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go w.readLoop()
	return w, nil
}

func (w *WebSocketConnection) readLoop() {
	defer close(w.frames)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.frames <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		return n, nil
	}

	var timeout <-chan time.Time
	if !w.deadline.IsZero() {
		d := time.Until(w.deadline)
		if d <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-w.frames:
		if !ok {
			w.mu.Lock()
			err := w.readErr
			w.mu.Unlock()
			if err == nil {
				err = ErrConnectionClosed
			}
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		n := copy(p, data)
		w.buf = data[n:]
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.conn.Close()
}

// SetReadDeadline records the deadline applied to subsequent reads
func (w *WebSocketConnection) SetReadDeadline(t time.Time) error {
	w.deadline = t
	return nil
}
