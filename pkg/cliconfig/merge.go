package cliconfig

// Keys lists every YAML key of CLIConfig in declaration order.
var Keys = []string{
	"bindAddress", "portStart", "portEnd", "maxConnections", "startupTimeout",
	"requireUserAgent", "userAgent",
	"scriptTimeout", "maxIncludeDepth", "closeVeto",
	"logLevel", "logFormat",
}

// MergeConfig merges source config into target, updating sources tracking.
// Non-zero values from source are applied, and so are zero values whose key
// is in source.SetFields.
func MergeConfig(target, source *CLIConfig, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString(target, source, "bindAddress", &target.BindAddress, source.BindAddress, sourceType)
	mergeInt(target, source, "portStart", &target.PortStart, source.PortStart, sourceType)
	mergeInt(target, source, "portEnd", &target.PortEnd, source.PortEnd, sourceType)
	mergeInt(target, source, "maxConnections", &target.MaxConnections, source.MaxConnections, sourceType)
	mergeInt(target, source, "startupTimeout", &target.StartupTimeout, source.StartupTimeout, sourceType)
	mergeBool(target, source, "requireUserAgent", &target.RequireUserAgent, source.RequireUserAgent, sourceType)
	mergeString(target, source, "userAgent", &target.UserAgent, source.UserAgent, sourceType)
	mergeInt(target, source, "scriptTimeout", &target.ScriptTimeout, source.ScriptTimeout, sourceType)
	mergeInt(target, source, "maxIncludeDepth", &target.MaxIncludeDepth, source.MaxIncludeDepth, sourceType)
	mergeBool(target, source, "closeVeto", &target.CloseVeto, source.CloseVeto, sourceType)
	mergeString(target, source, "logLevel", &target.LogLevel, source.LogLevel, sourceType)
	mergeString(target, source, "logFormat", &target.LogFormat, source.LogFormat, sourceType)
}

func mergeString(target, source *CLIConfig, key string, dst *string, v, sourceType string) {
	if v != "" || isSet(source, key) {
		*dst = v
		target.Sources[key] = sourceType
	}
}

func mergeInt(target, source *CLIConfig, key string, dst *int, v int, sourceType string) {
	if v != 0 || isSet(source, key) {
		*dst = v
		target.Sources[key] = sourceType
	}
}

func mergeBool(target, source *CLIConfig, key string, dst *bool, v bool, sourceType string) {
	if v || isSet(source, key) {
		*dst = v
		target.Sources[key] = sourceType
	}
}

// isSet reports whether a field identified by its YAML key was explicitly
// set in the source config. Programmatic configs without SetFields only
// merge non-zero values.
func isSet(cfg *CLIConfig, yamlKey string) bool {
	return cfg.SetFields != nil && cfg.SetFields[yamlKey]
}
