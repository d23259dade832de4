// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the YAML description of a thermostat bus.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

type Config struct {
	Bus         BusConfig          `yaml:"bus"`
	Thermostats []ThermostatConfig `yaml:"thermostats"`
	Poll        PollConfig         `yaml:"poll"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// ---- BUS ----

// BusConfig names exactly one way to reach the line
type BusConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`

	Device string `yaml:"device"`

	MaxRetries int `yaml:"max_retries"`
	BackoffMs  int `yaml:"backoff_ms"`
}

// Endpoint converts the bus section. The password never comes from the file.
func (b BusConfig) Endpoint() prt.Endpoint {
	return prt.Endpoint{
		Host:          b.Host,
		Port:          b.Port,
		URL:           b.URL,
		Username:      b.Username,
		SkipTLSVerify: b.NoSSLVerify,
		Device:        b.Device,
	}
}

// Backoff returns the retry pause
func (b BusConfig) Backoff() time.Duration {
	return time.Duration(b.BackoffMs) * time.Millisecond
}

// ---- THERMOSTATS ----

type ThermostatConfig struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// Interval returns the poll period
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// Load reads, validates and normalizes a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, then validates and normalizes it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}
