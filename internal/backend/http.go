package backend

import (
	"net"
	"net/http"

	"modelctl/internal/config"
	"modelctl/internal/core"
)

// NewHTTPClient creates the pooled HTTP client shared by backend calls.
// Settings.RequestTimeout is usually zero: pulls can run for many minutes,
// so each operation bounds itself through its context instead.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	dialer := &net.Dialer{
		Timeout:   settings.DialTimeout,
		KeepAlive: settings.IdleConnTimeout,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
		DisableCompression:    false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}
