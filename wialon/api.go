package wialon

import (
	"context"
	"encoding/json"
)

// API is the subset of Client used by callers that only need the core
// session and query operations
type API interface {
	// Call invokes any service and returns the raw payload
	Call(ctx context.Context, svc string, params any) (json.RawMessage, error)

	// Login opens a session with an access token
	Login(ctx context.Context, token string) (*LoginResponse, error)

	// Logout closes the current session
	Logout(ctx context.Context) error

	// SearchItems searches items by property mask
	SearchItems(ctx context.Context, params SearchItemsParams) (*SearchItemsResponse, error)

	// ReverseGeocode returns the address of a point
	ReverseGeocode(ctx context.Context, lat, lon float64, flags int64) (string, error)

	// SessionID returns the current session id
	SessionID() string
}

var _ API = (*Client)(nil)
