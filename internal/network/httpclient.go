// File: internal/network/httpclient.go
package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/xkilldash9x/vatm-cli/internal/config"
)

const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultRequestTimeout        = 60 * time.Second

	// A single terminal is driven at a time; the pool stays small.
	DefaultMaxIdleConns        = 8
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 90 * time.Second
)

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	IgnoreTLSErrors bool
	TLSConfig       *tls.Config

	RequestTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	DialerConfig *DialerConfig

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	ForceHTTP2 bool
	ProxyURL   *url.URL

	// TraceBodies logs request and response bodies at debug level.
	TraceBodies bool

	Logger *zap.Logger
}

// NewDefaultClientConfig returns transport defaults for talking to a simulator host.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		DialerConfig:          NewDialerConfig(),
		RequestTimeout:        DefaultRequestTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		Logger:                zap.NewNop(),
	}
}

// ClientConfigFrom maps the user's network settings onto a ClientConfig.
func ClientConfigFrom(cfg config.NetworkConfig, logger *zap.Logger) (*ClientConfig, error) {
	cc := NewDefaultClientConfig()
	if cfg.Timeout > 0 {
		cc.RequestTimeout = cfg.Timeout
	}
	cc.IgnoreTLSErrors = cfg.IgnoreTLSErrors
	cc.ForceHTTP2 = cfg.ForceHTTP2
	cc.TraceBodies = cfg.TraceBodies
	if logger != nil {
		cc.Logger = logger.Named("http")
	}
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		cc.ProxyURL = u
	}
	return cc, nil
}

// NewHTTPTransport builds an http.Transport from config.
func NewHTTPTransport(config *ClientConfig) *http.Transport {
	if config == nil {
		config = NewDefaultClientConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	dialerCfg := config.DialerConfig
	if dialerCfg == nil {
		dialerCfg = NewDialerConfig()
	}
	tlsConfig := configureTLS(config)

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return DialTCPContext(ctx, network, addr, dialerCfg)
		},
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		// Decompression is handled by CompressionMiddleware.
		DisableCompression: true,
		ForceAttemptHTTP2:  config.ForceHTTP2,
	}
	if config.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(config.ProxyURL)
	}

	if config.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			config.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{"http/1.1"}
	}
	return transport
}

// NewClient returns an http.Client whose transport chain is
// tracing -> decompression -> transport.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = NewDefaultClientConfig()
	}
	var rt http.RoundTripper = NewCompressionMiddleware(NewHTTPTransport(config))
	if config.TraceBodies {
		rt = NewTracingTransport(rt, config.Logger)
	}
	return &http.Client{
		Transport: rt,
		Timeout:   config.RequestTimeout,
	}
}

func configureTLS(config *ClientConfig) *tls.Config {
	var tlsConfig *tls.Config
	if config.TLSConfig != nil {
		tlsConfig = config.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ClientSessionCache: tls.NewLRUClientSessionCache(64),
		}
	}
	// Simulator hosts commonly run with self-signed certificates.
	tlsConfig.InsecureSkipVerify = config.IgnoreTLSErrors
	return tlsConfig
}
