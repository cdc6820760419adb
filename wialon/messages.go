package wialon

import (
	"context"
	"time"
)

// LoadIntervalParams select unit messages in a time interval
type LoadIntervalParams struct {
	ItemID    int64
	From      time.Time
	To        time.Time
	Flags     int64
	FlagsMask int64
	LoadCount int
}

type loadIntervalRequest struct {
	ItemID    int64 `json:"itemId"`
	TimeFrom  int64 `json:"timeFrom"`
	TimeTo    int64 `json:"timeTo"`
	Flags     int64 `json:"flags"`
	FlagsMask int64 `json:"flagsMask"`
	LoadCount int   `json:"loadCount"`
}

// LoadInterval loads messages of a unit between From and To.
//
// An empty interval is reported by the server as error 1001, see
// APIError.IsNoMessages.
func (c *Client) LoadInterval(ctx context.Context, params LoadIntervalParams) (*MessagesResponse, error) {
	if params.ItemID <= 0 {
		return nil, usageErrorf(SvcLoadInterval, ErrInvalidParams, "itemId must be positive")
	}
	if params.From.IsZero() || params.To.IsZero() {
		return nil, usageErrorf(SvcLoadInterval, ErrInvalidParams, "interval bounds are required")
	}
	if params.To.Before(params.From) {
		return nil, usageErrorf(SvcLoadInterval, ErrInvalidParams, "interval ends before it starts")
	}
	if params.LoadCount < 0 {
		return nil, usageErrorf(SvcLoadInterval, ErrInvalidParams, "loadCount must not be negative")
	}

	req := loadIntervalRequest{
		ItemID:    params.ItemID,
		TimeFrom:  params.From.Unix(),
		TimeTo:    params.To.Unix(),
		Flags:     params.Flags,
		FlagsMask: params.FlagsMask,
		LoadCount: params.LoadCount,
	}

	var resp MessagesResponse
	if err := c.callInto(ctx, SvcLoadInterval, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadLastParams select the newest messages of a unit
type LoadLastParams struct {
	ItemID    int64
	LastTime  time.Time
	LastCount int
	Flags     int64
	FlagsMask int64
	LoadCount int
}

type loadLastRequest struct {
	ItemID    int64 `json:"itemId"`
	LastTime  int64 `json:"lastTime"`
	LastCount int   `json:"lastCount"`
	Flags     int64 `json:"flags"`
	FlagsMask int64 `json:"flagsMask"`
	LoadCount int   `json:"loadCount"`
}

// LoadLast loads the LastCount messages preceding LastTime.
func (c *Client) LoadLast(ctx context.Context, params LoadLastParams) (*MessagesResponse, error) {
	if params.ItemID <= 0 {
		return nil, usageErrorf(SvcLoadLast, ErrInvalidParams, "itemId must be positive")
	}
	if params.LastTime.IsZero() {
		return nil, usageErrorf(SvcLoadLast, ErrInvalidParams, "lastTime is required")
	}
	if params.LastCount <= 0 {
		return nil, usageErrorf(SvcLoadLast, ErrInvalidParams, "lastCount must be positive")
	}
	if params.LoadCount < 0 {
		return nil, usageErrorf(SvcLoadLast, ErrInvalidParams, "loadCount must not be negative")
	}

	req := loadLastRequest{
		ItemID:    params.ItemID,
		LastTime:  params.LastTime.Unix(),
		LastCount: params.LastCount,
		Flags:     params.Flags,
		FlagsMask: params.FlagsMask,
		LoadCount: params.LoadCount,
	}

	var resp MessagesResponse
	if err := c.callInto(ctx, SvcLoadLast, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnloadMessages releases messages loaded into the session.
func (c *Client) UnloadMessages(ctx context.Context) error {
	_, err := c.Call(ctx, SvcUnloadMessages, struct{}{})
	return err
}
