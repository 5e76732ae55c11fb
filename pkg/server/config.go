package server

import (
	"time"

	"github.com/biglinux/bigbashview/pkg/include"
)

// Defaults for Config.
const (
	DefaultBindAddress    = "127.0.0.1"
	DefaultPortStart      = 19000
	DefaultPortEnd        = 19099
	DefaultUserAgent      = "BigBashView-Agent"
	DefaultStartupTimeout = 5 * time.Second
	DefaultMaxBodyBytes   = 10 << 20

	readyPollInterval = 50 * time.Millisecond
)

// Config holds server settings.
type Config struct {
	// BindAddress is the loopback address to listen on. It is also the
	// only client address the security gate accepts.
	BindAddress string

	// PortStart and PortEnd bound the ports probed at startup.
	PortStart int
	PortEnd   int

	// RequireUserAgent makes the gate also demand UserAgent.
	RequireUserAgent bool
	UserAgent        string

	// ScriptTimeout bounds each script run. Zero means no bound beyond the
	// client staying connected.
	ScriptTimeout time.Duration

	// MaxIncludeDepth bounds html include nesting. Zero means unlimited.
	MaxIncludeDepth int

	// CloseVeto keeps the process alive after a "close" request whose
	// script printed "False".
	CloseVeto bool

	// MaxConnections caps concurrent connections. Zero means no cap.
	MaxConnections int

	// StartupTimeout bounds the wait for the listener to accept.
	StartupTimeout time.Duration

	// MaxBodyBytes caps POST bodies used as query strings.
	MaxBodyBytes int64

	// Version is shown on the welcome page.
	Version string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BindAddress:     DefaultBindAddress,
		PortStart:       DefaultPortStart,
		PortEnd:         DefaultPortEnd,
		UserAgent:       DefaultUserAgent,
		MaxIncludeDepth: include.DefaultMaxDepth,
		StartupTimeout:  DefaultStartupTimeout,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		Version:         "dev",
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.BindAddress == "" {
		c.BindAddress = d.BindAddress
	}
	if c.PortStart == 0 {
		c.PortStart = d.PortStart
	}
	if c.PortEnd == 0 {
		c.PortEnd = c.PortStart + (d.PortEnd - d.PortStart)
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = d.StartupTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.Version == "" {
		c.Version = d.Version
	}
}
