// Package cliconfig provides configuration types and loading for the
// bigbashview CLI.
package cliconfig

// CLIConfig represents the complete configuration for the bigbashview CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (BBV_*)
// 3. Local config file (.bigbashview.yaml in the working directory)
// 4. Global config file ($XDG_CONFIG_HOME/bigbashview/config.yaml)
// 5. Default values (lowest priority)
type CLIConfig struct {
	// Listener settings
	BindAddress    string `yaml:"bindAddress" json:"bindAddress"`
	PortStart      int    `yaml:"portStart" json:"portStart"`
	PortEnd        int    `yaml:"portEnd" json:"portEnd"`
	MaxConnections int    `yaml:"maxConnections" json:"maxConnections"`
	StartupTimeout int    `yaml:"startupTimeout" json:"startupTimeout"`

	// Gate settings
	RequireUserAgent bool   `yaml:"requireUserAgent" json:"requireUserAgent"`
	UserAgent        string `yaml:"userAgent" json:"userAgent"`

	// Page settings. ScriptTimeout is in seconds, 0 means unbounded.
	// MaxIncludeDepth 0 means unlimited.
	ScriptTimeout   int  `yaml:"scriptTimeout" json:"scriptTimeout"`
	MaxIncludeDepth int  `yaml:"maxIncludeDepth" json:"maxIncludeDepth"`
	CloseVeto       bool `yaml:"closeVeto" json:"closeVeto"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Source tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records the keys explicitly present in the source, so that
	// false and 0 can override a non-zero value during merge.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFlag    = "flag"
)
