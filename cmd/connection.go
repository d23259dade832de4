// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	cfg "github.com/Thermoquad/prtlink/internal/config"
	"github.com/Thermoquad/prtlink/pkg/prt"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("PRTLINK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// loadConfig reads --config when given. It returns nil without a file.
func loadConfig() (*cfg.Config, error) {
	if configPath == "" {
		return nil, nil
	}
	return cfg.Load(configPath)
}

// flagEndpoint builds an endpoint from the connection flags alone
func flagEndpoint() prt.Endpoint {
	return prt.Endpoint{
		Host:          busHost,
		Port:          busPort,
		URL:           wsURL,
		Username:      wsUsername,
		SkipTLSVerify: wsNoSSLVerify,
		Device:        busDevice,
	}
}

// resolveEndpoint picks the flag endpoint when any connection flag is set,
// otherwise the bus section of the config file
func resolveEndpoint(c *cfg.Config) (prt.Endpoint, error) {
	ep := flagEndpoint()
	if ep.Kind() == prt.EndpointNone && c != nil {
		ep = c.Bus.Endpoint()
	}
	if ep.Kind() == prt.EndpointNone {
		return ep, fmt.Errorf("one of --host/--port, --url or --device must be specified")
	}
	if err := ep.Validate(); err != nil {
		return ep, err
	}
	return ep, nil
}

// transportOptions turns the bus section into transport tuning
func transportOptions(c *cfg.Config) []prt.Option {
	opts := []prt.Option{prt.WithLogger(logger)}
	if c != nil {
		opts = append(opts, prt.WithMaxRetries(c.Bus.MaxRetries), prt.WithBackoff(c.Bus.Backoff()))
	}
	return opts
}

// OpenTransport resolves the endpoint, asks for a password when needed and
// opens the bus
func OpenTransport(c *cfg.Config, extra ...prt.Option) (*prt.Transport, string, error) {
	ep, err := resolveEndpoint(c)
	if err != nil {
		return nil, "", err
	}

	if ep.Kind() == prt.EndpointWebSocket && ep.Username != "" {
		ep.Password, err = GetPassword()
		if err != nil {
			return nil, "", err
		}
	}

	t, err := prt.New(ep, append(transportOptions(c), extra...)...)
	if err != nil {
		return nil, "", err
	}
	return t, ep.String(), nil
}

// parseAddresses converts thermostat ids given on the command line
func parseAddresses(args []string) ([]prt.Address, error) {
	addrs := make([]prt.Address, 0, len(args))
	seen := make(map[prt.Address]bool, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("thermostat id %q is not a number", arg)
		}
		addr, err := prt.ParseAddress(n)
		if err != nil {
			return nil, err
		}
		if seen[addr] {
			return nil, fmt.Errorf("%w: %d given twice", prt.ErrDuplicateAddress, addr)
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// nameFor looks up the configured name of a thermostat
func nameFor(c *cfg.Config, addr prt.Address) string {
	if c != nil {
		for _, t := range c.Thermostats {
			if t.ID == int(addr) {
				return t.Name
			}
		}
	}
	return ""
}
