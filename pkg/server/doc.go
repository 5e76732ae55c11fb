// Package server is the loopback HTTP server behind a bigbashview window.
//
// Requests are matched against a fixed, ordered route table:
//
//	/favicon.ico   empty body
//	/content...    file served through the include preprocessor
//	/execute...    command line run through the script executor
//	/api/file      JSON file CRUD
//	anything else  compat mode: dispatch by file suffix
//
// The trailing path of a route may carry options before a "$" separator,
// for example /execute/plain,close$./quit.sh. The "plain" option forces a
// text/plain response and "close" terminates the process once the script's
// output has been sent, which is how pages close their window.
//
// Only clients connecting from 127.0.0.1 are served; everyone else gets an
// empty 403 before any file is read or process started.
package server
