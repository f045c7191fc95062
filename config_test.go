/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{port: 8080, queueSize: defaultQueueSize, maxFrameRate: 40}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "tls pair", mutate: func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }},
		{name: "cert without key", mutate: func(c *Config) { c.tlsCert = "cert.pem" }, wantErr: "--tls-key"},
		{name: "port zero", mutate: func(c *Config) { c.port = 0 }, wantErr: "invalid port"},
		{name: "port too high", mutate: func(c *Config) { c.port = 70000 }, wantErr: "invalid port"},
		{name: "negative idle timeout", mutate: func(c *Config) { c.idleTimeout = -time.Second }, wantErr: "idle timeout"},
		{name: "empty queue", mutate: func(c *Config) { c.queueSize = 0 }, wantErr: "queue size"},
		{name: "negative frame rate", mutate: func(c *Config) { c.maxFrameRate = -1 }, wantErr: "frame rate"},
		{name: "unlimited frame rate", mutate: func(c *Config) { c.maxFrameRate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("validate: %v", err)
			case tt.wantErr != "" && err == nil:
				t.Fatalf("validate accepted config, want error containing %q", tt.wantErr)
			case tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr):
				t.Fatalf("validate: %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	if got := cfg.scheme(); got != "http" {
		t.Errorf("scheme = %q, want http", got)
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if got := cfg.scheme(); got != "https" {
		t.Errorf("scheme = %q, want https", got)
	}
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	if cfg.port != 8080 || cfg.bind != "0.0.0.0" {
		t.Errorf("listen = %s:%d, want 0.0.0.0:8080", cfg.bind, cfg.port)
	}
	if cfg.queueSize != defaultQueueSize {
		t.Errorf("queueSize = %d, want %d", cfg.queueSize, defaultQueueSize)
	}
	if cfg.idleTimeout != 0 {
		t.Errorf("idleTimeout = %s, want eviction off", cfg.idleTimeout)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestNewCmdReadsEnvironment(t *testing.T) {
	t.Setenv("BEACON_PORT", "9090")
	t.Setenv("BEACON_IDLE_TIMEOUT", "90s")
	t.Setenv("BEACON_QUEUE_SIZE", "8")
	t.Setenv("BEACON_VERBOSE", "true")

	cfg := &Config{}
	newCmd(cfg)

	if cfg.port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.port)
	}
	if cfg.idleTimeout != 90*time.Second {
		t.Errorf("idleTimeout = %s, want 1m30s", cfg.idleTimeout)
	}
	if cfg.queueSize != 8 {
		t.Errorf("queueSize = %d, want 8", cfg.queueSize)
	}
	if !cfg.verbose {
		t.Error("verbose not set from environment")
	}
}

func TestNewCmdNormalizesUnderscores(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.Flags().Parse([]string{"--max_frame_rate=5", "--queue-size=3"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.maxFrameRate != 5 || cfg.queueSize != 3 {
		t.Errorf("maxFrameRate=%d queueSize=%d, want 5 and 3", cfg.maxFrameRate, cfg.queueSize)
	}
}
