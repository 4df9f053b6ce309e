// Package httpx builds the HTTP clients used to talk to the download server,
// including proxy routing and NTLM proxy authentication.
package httpx

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http2"

	"github.com/romdeck/romdeck/internal/config"
)

const (
	dialTimeout         = 30 * time.Second
	dialKeepAlive       = 30 * time.Second
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// NewClient configures an HTTP client from the romdeck config. Proxy
// resolution order: explicit proxy_url from the config, then the standard
// HTTP(S)_PROXY environment variables. With proxy_ntlm enabled, the transport
// is wrapped in an NTLM negotiator so the first request performs the
// challenge/response handshake against the proxy.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
			proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
		}
		transport.Proxy = nethttp.ProxyURL(proxyURL)
	} else {
		transport.Proxy = nethttp.ProxyFromEnvironment
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
	}

	client := &nethttp.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}

	if cfg.ProxyNTLM {
		if cfg.ProxyUser == "" || cfg.ProxyPassword == "" {
			return nil, fmt.Errorf("proxy_ntlm requires proxy_user and proxy_password")
		}
		client.Transport = ntlmssp.Negotiator{
			RoundTripper: transport,
		}
	}

	return client, nil
}
