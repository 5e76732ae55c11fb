package cliconfig

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "BBV_"

// EnvVars maps environment variable names to YAML keys.
var EnvVars = map[string]string{
	"BBV_BIND_ADDRESS":       "bindAddress",
	"BBV_PORT_START":         "portStart",
	"BBV_PORT_END":           "portEnd",
	"BBV_MAX_CONNECTIONS":    "maxConnections",
	"BBV_STARTUP_TIMEOUT":    "startupTimeout",
	"BBV_REQUIRE_USER_AGENT": "requireUserAgent",
	"BBV_USER_AGENT":         "userAgent",
	"BBV_SCRIPT_TIMEOUT":     "scriptTimeout",
	"BBV_MAX_INCLUDE_DEPTH":  "maxIncludeDepth",
	"BBV_CLOSE_VETO":         "closeVeto",
	"BBV_LOG_LEVEL":          "logLevel",
	"BBV_LOG_FORMAT":         "logFormat",
}

// LoadEnvConfig applies BBV_* environment variables to cfg.
func LoadEnvConfig(cfg *CLIConfig) error {
	envCfg := &CLIConfig{SetFields: make(map[string]bool)}

	for name, key := range EnvVars {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := SetValue(envCfg, key, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	MergeConfig(cfg, envCfg, SourceEnv)
	return nil
}

// SetValue parses value into the field named by the YAML key and marks it
// as set.
func SetValue(cfg *CLIConfig, key, value string) error {
	switch key {
	case "bindAddress":
		cfg.BindAddress = value
	case "userAgent":
		cfg.UserAgent = value
	case "logLevel":
		cfg.LogLevel = value
	case "logFormat":
		cfg.LogFormat = value
	case "portStart", "portEnd", "maxConnections", "startupTimeout", "scriptTimeout", "maxIncludeDepth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		*intField(cfg, key) = n
	case "requireUserAgent", "closeVeto":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		if key == "closeVeto" {
			cfg.CloseVeto = b
		} else {
			cfg.RequireUserAgent = b
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if cfg.SetFields == nil {
		cfg.SetFields = make(map[string]bool)
	}
	cfg.SetFields[key] = true
	return nil
}

func intField(cfg *CLIConfig, key string) *int {
	switch key {
	case "portStart":
		return &cfg.PortStart
	case "portEnd":
		return &cfg.PortEnd
	case "maxConnections":
		return &cfg.MaxConnections
	case "startupTimeout":
		return &cfg.StartupTimeout
	case "scriptTimeout":
		return &cfg.ScriptTimeout
	default:
		return &cfg.MaxIncludeDepth
	}
}
