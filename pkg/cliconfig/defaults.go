package cliconfig

// DefaultBindAddress is the only address the server listens on and accepts.
const DefaultBindAddress = "127.0.0.1"

// DefaultPortStart and DefaultPortEnd bound the startup port probe.
const (
	DefaultPortStart = 19000
	DefaultPortEnd   = 19099
)

// DefaultStartupTimeout is the wait for the listener in seconds.
const DefaultStartupTimeout = 5

// DefaultUserAgent is the agent demanded when requireUserAgent is on.
const DefaultUserAgent = "BigBashView-Agent"

// DefaultMaxIncludeDepth bounds html include nesting.
const DefaultMaxIncludeDepth = 16

// DefaultLogLevel and DefaultLogFormat configure pkg/logging.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		BindAddress:     DefaultBindAddress,
		PortStart:       DefaultPortStart,
		PortEnd:         DefaultPortEnd,
		StartupTimeout:  DefaultStartupTimeout,
		UserAgent:       DefaultUserAgent,
		MaxIncludeDepth: DefaultMaxIncludeDepth,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		Sources:         make(map[string]string),
	}

	for _, key := range Keys {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}
