// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// EndpointKind names how the RS-485 line is reached
type EndpointKind int

const (
	EndpointNone EndpointKind = iota
	EndpointTCP
	EndpointWebSocket
	EndpointSerial
)

// Endpoint addresses the RS-485 line. Exactly one form must be given:
// Host and Port for a raw TCP serial bridge, URL for a WebSocket bridge,
// or Device for a local serial adapter.
type Endpoint struct {
	Host string
	Port int

	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool

	Device string
}

// Kind reports which form the endpoint uses. It does not validate.
func (e Endpoint) Kind() EndpointKind {
	switch {
	case e.Device != "":
		return EndpointSerial
	case e.URL != "":
		return EndpointWebSocket
	case e.Host != "" || e.Port != 0:
		return EndpointTCP
	}
	return EndpointNone
}

// Validate checks that exactly one addressing form is complete
func (e Endpoint) Validate() error {
	forms := 0
	if e.Host != "" || e.Port != 0 {
		forms++
	}
	if e.URL != "" {
		forms++
	}
	if e.Device != "" {
		forms++
	}

	switch {
	case forms == 0:
		return fmt.Errorf("%w: provide one of host and port, url, or device", ErrConfig)
	case forms > 1:
		return fmt.Errorf("%w: provide only one of host and port, url, or device (host=%q port=%d url=%q device=%q)",
			ErrConfig, e.Host, e.Port, e.URL, e.Device)
	}

	switch e.Kind() {
	case EndpointTCP:
		if e.Host == "" {
			return fmt.Errorf("%w: port %d given without host", ErrConfig, e.Port)
		}
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range for host %q", ErrConfig, e.Port, e.Host)
		}
	case EndpointWebSocket:
		u, err := url.Parse(e.URL)
		if err != nil {
			return fmt.Errorf("%w: invalid URL: %v", ErrConfig, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("%w: unsupported URL scheme: %s (use ws:// or wss://)", ErrConfig, u.Scheme)
		}
	}

	return nil
}

// Address returns host:port for a TCP bridge
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String describes the endpoint for logs and headers
func (e Endpoint) String() string {
	switch e.Kind() {
	case EndpointSerial:
		return fmt.Sprintf("Serial: %s @ %d baud", e.Device, BaudRate)
	case EndpointWebSocket:
		return fmt.Sprintf("WebSocket: %s", e.URL)
	case EndpointTCP:
		return fmt.Sprintf("TCP bridge: %s", e.Address())
	}
	return "unconfigured"
}

// Dialer returns a function that opens a fresh connection to the endpoint.
// The endpoint should be validated first.
func (e Endpoint) Dialer() Dialer {
	switch e.Kind() {
	case EndpointSerial:
		return func() (Conn, error) {
			return OpenSerial(e.Device)
		}
	case EndpointWebSocket:
		return func() (Conn, error) {
			return OpenWebSocket(e.URL, e.Username, e.Password, e.SkipTLSVerify)
		}
	default:
		return func() (Conn, error) {
			return OpenTCP(e.Address(), DefaultDialTimeout)
		}
	}
}
