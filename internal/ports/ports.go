// Package ports provides loopback port probing for the server lifecycle.
package ports

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrNoFreePort is returned when every port in the probed range is taken.
var ErrNoFreePort = errors.New("no free port in range")

// IsAvailable checks if host:port can be bound right now.
func IsAvailable(host string, port int) bool {
	return Check(host, port) == nil
}

// Check binds host:port and immediately releases it.
func Check(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	_ = ln.Close()
	return nil
}

// FindFree returns the first port in [start, end] that can be bound on host.
// The port is released before returning, so callers must bind it again and
// handle the (small) race with other processes themselves.
func FindFree(host string, start, end int) (int, error) {
	if end < start {
		return 0, fmt.Errorf("invalid port range %d-%d", start, end)
	}
	for port := start; port <= end; port++ {
		if IsAvailable(host, port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w %d-%d on %s", ErrNoFreePort, start, end, host)
}

// WaitListening dials addr every interval until a connection succeeds or ctx
// is done.
func WaitListening(ctx context.Context, addr string, interval time.Duration) error {
	dialer := net.Dialer{Timeout: interval}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}
