// Package logging provides structured logging configuration for bigbashview.
//
// The package wraps log/slog so that the server, the script executor and the
// CLI share one logger shape. Components accept a *slog.Logger through a
// functional option and fall back to Nop() when none is given.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatText,
//	})
//	logger.Info("server ready", "url", srv.URL("/"))
//
// Script stderr is logged at debug level, so running with --log-level debug
// is the way to see why a page came back empty.
package logging
