package cliconfig

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks ranges and enumerations.
func (c *CLIConfig) Validate() error {
	if ip := net.ParseIP(c.BindAddress); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("bindAddress %q is not a loopback address", c.BindAddress)
	}
	if err := checkPort("portStart", c.PortStart); err != nil {
		return err
	}
	if err := checkPort("portEnd", c.PortEnd); err != nil {
		return err
	}
	if c.PortEnd < c.PortStart {
		return fmt.Errorf("portEnd %d is below portStart %d", c.PortEnd, c.PortStart)
	}

	nonNegative := []struct {
		key   string
		value int
	}{
		{"maxConnections", c.MaxConnections},
		{"startupTimeout", c.StartupTimeout},
		{"scriptTimeout", c.ScriptTimeout},
		{"maxIncludeDepth", c.MaxIncludeDepth},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return fmt.Errorf("%s %d must not be negative", f.key, f.value)
		}
	}

	if c.RequireUserAgent && c.UserAgent == "" {
		return fmt.Errorf("userAgent must be set when requireUserAgent is on")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logLevel %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logFormat %q is not one of text, json", c.LogFormat)
	}
	return nil
}

func checkPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d is out of range", key, port)
	}
	return nil
}
