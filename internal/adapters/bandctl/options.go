package bandctl

import (
	"net/http"

	"github.com/arenalabs/motionduel/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithServiceHeaders sets the tenant headers sent with every request.
func WithServiceHeaders(service, servicePath string) Option {
	return func(c *Client) {
		if service != "" {
			c.service = service
		}
		if servicePath != "" {
			c.servicePath = servicePath
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
