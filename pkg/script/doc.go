// Package script runs page scripts for the bigbashview server.
//
// A script is a shell command line built from a requested path and its raw
// query string. The child sees the server's environment, one variable per
// query parameter (the overlay) and the reserved bbv_ip / bbv_port
// variables, which always win over the overlay.
//
// Once a script file cannot be made executable the server flips a sticky
// RootFlag; from then on every command line is handed to bash explicitly
// instead of relying on the file's exec bit.
package script
