package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/biglinux/bigbashview/internal/autoload"
	"github.com/biglinux/bigbashview/pkg/cliconfig"
	"github.com/biglinux/bigbashview/pkg/logging"
	"github.com/biglinux/bigbashview/pkg/server"
)

// configFlagVals holds the values of the configuration flags. They are only
// read through cobra's Changed tracking, see applyFlags.
type configFlagVals struct {
	directory        string
	bindAddress      string
	portStart        int
	portEnd          int
	maxConnections   int
	startupTimeout   int
	requireUserAgent bool
	userAgent        string
	scriptTimeout    int
	maxIncludeDepth  int
	closeVeto        bool
	logLevel         string
	logFormat        string
}

// flagKeys maps configuration flag names to cliconfig keys.
var flagKeys = map[string]string{
	"bind-address":       "bindAddress",
	"port-start":         "portStart",
	"port-end":           "portEnd",
	"max-connections":    "maxConnections",
	"startup-timeout":    "startupTimeout",
	"require-user-agent": "requireUserAgent",
	"user-agent":         "userAgent",
	"script-timeout":     "scriptTimeout",
	"max-include-depth":  "maxIncludeDepth",
	"close-veto":         "closeVeto",
	"log-level":          "logLevel",
	"log-format":         "logFormat",
}

func addConfigFlags(cmd *cobra.Command, v *configFlagVals) {
	f := cmd.Flags()
	f.StringVarP(&v.directory, "directory", "d", "", "Work directory; its index/main file is opened when no URL is given")
	f.StringVar(&v.bindAddress, "bind-address", cliconfig.DefaultBindAddress, "Loopback address to listen on")
	f.IntVar(&v.portStart, "port-start", cliconfig.DefaultPortStart, "First port to probe")
	f.IntVar(&v.portEnd, "port-end", cliconfig.DefaultPortEnd, "Last port to probe")
	f.IntVar(&v.maxConnections, "max-connections", 0, "Maximum concurrent connections (0 = unlimited)")
	f.IntVar(&v.startupTimeout, "startup-timeout", cliconfig.DefaultStartupTimeout, "Seconds to wait for the listener")
	f.BoolVar(&v.requireUserAgent, "require-user-agent", false, "Reject requests without the configured User-Agent")
	f.StringVar(&v.userAgent, "user-agent", cliconfig.DefaultUserAgent, "User-Agent required by --require-user-agent")
	f.IntVar(&v.scriptTimeout, "script-timeout", 0, "Seconds a script may run (0 = until the client disconnects)")
	f.IntVar(&v.maxIncludeDepth, "max-include-depth", cliconfig.DefaultMaxIncludeDepth, "Maximum html include nesting (0 = unlimited)")
	f.BoolVar(&v.closeVeto, "close-veto", false, `Keep running when a close script prints "False"`)
	f.StringVar(&v.logLevel, "log-level", cliconfig.DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&v.logFormat, "log-format", cliconfig.DefaultLogFormat, "Log format (text, json)")
}

// applyFlags merges the flags the user actually set into cfg.
func applyFlags(cmd *cobra.Command, cfg *cliconfig.CLIConfig) error {
	flagCfg := &cliconfig.CLIConfig{SetFields: make(map[string]bool)}
	for name, key := range flagKeys {
		fl := cmd.Flags().Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := cliconfig.SetValue(flagCfg, key, fl.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	cliconfig.MergeConfig(cfg, flagCfg, cliconfig.SourceFlag)
	return nil
}

// startup is everything serve and url resolve before binding.
type startup struct {
	cfg      *cliconfig.CLIConfig
	startURL string
}

// prepare moves into the work directory, loads configuration and resolves
// the start URL.
func prepare(cmd *cobra.Command, args []string, v *configFlagVals) (*startup, error) {
	if len(args) > 1 {
		return nil, ErrTooManyArgs
	}
	url := autoload.DefaultURL
	if len(args) == 1 {
		url = args[0]
	}

	autoloadDir := ""
	if v.directory != "" {
		info, err := os.Stat(v.directory)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", v.directory, ErrNotDirectory)
		}
		if err := os.Chdir(v.directory); err != nil {
			return nil, fmt.Errorf("enter work directory: %w", err)
		}
		autoloadDir = "."
	}

	cfg, err := cliconfig.LoadAll()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	startURL, err := autoload.Resolve(autoloadDir, url)
	if err != nil {
		return nil, err
	}
	return &startup{cfg: cfg, startURL: startURL}, nil
}

// loggingConfig builds the process logging settings from cfg, writing to w.
func loggingConfig(cfg *cliconfig.CLIConfig, w io.Writer) logging.Config {
	return logging.FromFlags(cfg.LogLevel, cfg.LogFormat, w)
}

// serverConfig converts CLI configuration into server settings.
func serverConfig(cfg *cliconfig.CLIConfig) server.Config {
	return server.Config{
		BindAddress:      cfg.BindAddress,
		PortStart:        cfg.PortStart,
		PortEnd:          cfg.PortEnd,
		RequireUserAgent: cfg.RequireUserAgent,
		UserAgent:        cfg.UserAgent,
		ScriptTimeout:    time.Duration(cfg.ScriptTimeout) * time.Second,
		MaxIncludeDepth:  cfg.MaxIncludeDepth,
		CloseVeto:        cfg.CloseVeto,
		MaxConnections:   cfg.MaxConnections,
		StartupTimeout:   time.Duration(cfg.StartupTimeout) * time.Second,
		Version:          displayVersion(buildInfo().Version),
	}
}
