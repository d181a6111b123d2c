package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	base := Config{Device: "STM32L1", Port: 4242, LogLevel: "info"}

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, false},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, false},
		{"no map", func(c *Config) { c.Device = "" }, false},
		{"map file only", func(c *Config) { c.Device = ""; c.MapFile = "regs.yaml" }, true},
		{"instance too long", func(c *Config) { c.Instance = string(make([]byte, 64)) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := config
			defer func() { config = saved }()
			config = base
			tt.modify(&config)
			err := validateConfig()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
