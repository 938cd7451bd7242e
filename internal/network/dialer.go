// File: internal/network/dialer.go
package network

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DialerConfig holds configuration for the TCP dialer under the HTTP transport.
type DialerConfig struct {
	Timeout   time.Duration
	KeepAlive time.Duration
	// NoDelay controls TCP_NODELAY. The simulator API is chatty with small
	// request bodies, so it is on by default.
	NoDelay  bool
	Resolver *net.Resolver
}

// NewDialerConfig returns the default dialer settings.
func NewDialerConfig() *DialerConfig {
	return &DialerConfig{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveInterval,
		NoDelay:   true,
		Resolver:  net.DefaultResolver,
	}
}

// DialTCPContext opens a TCP connection to address. Suitable for
// http.Transport.DialContext.
func DialTCPContext(ctx context.Context, network, address string, config *DialerConfig) (net.Conn, error) {
	if config == nil {
		config = NewDialerConfig()
	}
	dialer := &net.Dialer{
		Timeout:       config.Timeout,
		KeepAlive:     config.KeepAlive,
		FallbackDelay: 300 * time.Millisecond,
		Resolver:      config.Resolver,
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("tcp dial failed: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := configureTCP(tcpConn, config); err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func configureTCP(conn *net.TCPConn, config *DialerConfig) error {
	if err := conn.SetNoDelay(config.NoDelay); err != nil {
		return fmt.Errorf("failed to set TCP_NODELAY: %w", err)
	}
	if config.KeepAlive > 0 {
		if err := conn.SetKeepAlive(true); err != nil {
			return fmt.Errorf("failed to enable keep-alive: %w", err)
		}
		if err := conn.SetKeepAlivePeriod(config.KeepAlive); err != nil {
			return fmt.Errorf("failed to set keep-alive period: %w", err)
		}
	}
	return nil
}
