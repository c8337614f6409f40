package telemetry

import (
	"net/http"

	"github.com/arenalabs/motionduel/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, e.g. to adjust timeouts.
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

// WithMultiplier sets the points multiplier applied to every axis value.
func WithMultiplier(m float64) Option {
	return func(c *Client) {
		if m > 0 {
			c.multiplier = m
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
