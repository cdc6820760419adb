package wialon

import (
	"maps"
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithScheme sets the URL scheme, http or https.
func WithScheme(scheme string) Option {
	return func(c *Client) {
		c.scheme = scheme
	}
}

// WithHost sets the Remote API host.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithPort sets an explicit port. Zero uses the scheme default.
func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithDevelopment switches requests to the development path prefix.
func WithDevelopment(enabled bool) Option {
	return func(c *Client) {
		c.development = enabled
	}
}

// WithSessionID resumes an existing session.
func WithSessionID(sid string) Option {
	return func(c *Client) {
		c.sessionID = sid
	}
}

// WithUserID sets the user id of a session resumed with WithSessionID.
// Reverse geocoding needs it.
func WithUserID(id int64) Option {
	return func(c *Client) {
		c.userID = id
	}
}

// WithExtraParams sets parameters merged into every object-shaped request.
// Keys passed to a call take precedence over these.
func WithExtraParams(params map[string]any) Option {
	return func(c *Client) {
		c.extraParams = maps.Clone(params)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// It has no effect when a custom client is supplied with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHTTPMethod selects how the request envelope is sent. POST sends a form
// body, GET puts the fields in the query string.
func WithHTTPMethod(method string) Option {
	return func(c *Client) {
		c.method = method
	}
}

// WithGeocodeURL overrides the reverse geocoding service base URL.
func WithGeocodeURL(geocodeURL string) Option {
	return func(c *Client) {
		c.geocodeURL = geocodeURL
	}
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
