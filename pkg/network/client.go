// Package network builds outbound HTTP clients and browser-fingerprint
// sessions, with optional proxy routing.
package network

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Noooste/azuretls-client"
)

// ClientFactory creates HTTP clients and azuretls sessions with proxy
// configuration. A fresh session carries a fresh TLS fingerprint
// identity, which is what the scraping retry paths rely on.
type ClientFactory struct {
	proxyURL       string
	testHTTPClient *http.Client // for testing only
}

// NewClientFactory creates a new client factory. An empty proxyURL
// means direct connections.
func NewClientFactory(proxyURL string) *ClientFactory {
	return &ClientFactory{proxyURL: proxyURL}
}

// NewClientFactoryForTest creates a factory that returns the given
// http.Client from NewHTTPClient. This is only for use in tests.
func NewClientFactoryForTest(client *http.Client) *ClientFactory {
	return &ClientFactory{testHTTPClient: client}
}

// NewHTTPClient creates a standard http.Client with proxy configuration.
func (f *ClientFactory) NewHTTPClient(timeout time.Duration) *http.Client {
	if f.testHTTPClient != nil {
		return f.testHTTPClient
	}

	client := &http.Client{Timeout: timeout}
	if f.proxyURL != "" {
		if parsed, err := url.Parse(f.proxyURL); err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(parsed),
			}
		}
	}
	return client
}

// NewAzureSession creates an azuretls.Session with a Chrome fingerprint
// and proxy configuration. Callers own the session and must Close it.
func (f *ClientFactory) NewAzureSession(ctx context.Context, timeout time.Duration) *azuretls.Session {
	session := azuretls.NewSessionWithContext(ctx)
	session.Browser = azuretls.Chrome
	session.SetTimeout(timeout)

	if f.proxyURL != "" {
		_ = session.SetProxy(f.proxyURL)
	}
	return session
}

// ProxyURL returns the configured proxy URL.
func (f *ClientFactory) ProxyURL() string {
	return f.proxyURL
}

// ExtractHost returns the host part of a URL, or the input when it does
// not parse.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
