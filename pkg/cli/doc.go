// Package cli provides the command-line interface for bigbashview.
//
// Commands:
//   - serve: start the loopback page server, print the start URL and block
//     until SIGINT or SIGTERM (a page requesting "close" sends SIGTERM)
//   - url: print the start URL serve would open, without serving
//   - version: show build information
//
// Configuration is read from $XDG_CONFIG_HOME/bigbashview/config.yaml, then
// .bigbashview.yaml in the working directory, then BBV_* environment
// variables, then flags. With -d the process moves into the directory
// first, so the local file is the application's own.
//
// Usage:
//
//	bigbashview serve -d /usr/share/myapp
//	bigbashview serve '/execute$ls'
//	bigbashview url -d ./app --json
package cli
