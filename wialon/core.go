package wialon

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Service names used by the facade
const (
	SvcTokenLogin       = "token/login"
	SvcUseAuthHash      = "core/use_auth_hash"
	SvcCreateAuthHash   = "core/create_auth_hash"
	SvcDuplicate        = "core/duplicate"
	SvcLogout           = "core/logout"
	SvcSearchItems      = "core/search_items"
	SvcSearchItem       = "core/search_item"
	SvcBatch            = "core/batch"
	SvcUpdateDataFlags  = "core/update_data_flags"
	SvcGetHWTypes       = "core/get_hw_types"
	SvcCreateUnit       = "core/create_unit"
	SvcUpdateName       = "item/update_name"
	SvcDeleteItem       = "item/delete_item"
	SvcExecCmd          = "unit/exec_cmd"
	SvcUpdateGroupUnits = "unit_group/update_units"
	SvcLoadInterval     = "messages/load_interval"
	SvcLoadLast         = "messages/load_last"
	SvcUnloadMessages   = "messages/unload"
	SvcExecReport       = "report/exec_report"
	SvcGetResultRows    = "report/get_result_rows"
	SvcCleanupResult    = "report/cleanup_result"
)

// LoginParams are the token/login parameters
type LoginParams struct {
	Token     string `json:"token"`
	OperateAs string `json:"operateAs,omitempty"`
	Flags     int64  `json:"fl,omitempty"`
}

// Login authenticates with an access token and stores the returned session.
func (c *Client) Login(ctx context.Context, token string) (*LoginResponse, error) {
	return c.LoginWithParams(ctx, LoginParams{Token: token})
}

// LoginWithParams authenticates with full token/login parameters.
func (c *Client) LoginWithParams(ctx context.Context, params LoginParams) (*LoginResponse, error) {
	params.Token = strings.TrimSpace(params.Token)
	if params.Token == "" {
		return nil, usageErrorf(SvcTokenLogin, ErrInvalidParams, "token is required")
	}

	return c.authenticate(ctx, SvcTokenLogin, params)
}

// UseAuthHash authenticates with a hash obtained from CreateAuthHash.
func (c *Client) UseAuthHash(ctx context.Context, authHash string) (*LoginResponse, error) {
	authHash = strings.TrimSpace(authHash)
	if authHash == "" {
		return nil, usageErrorf(SvcUseAuthHash, ErrInvalidParams, "auth hash is required")
	}

	return c.authenticate(ctx, SvcUseAuthHash, map[string]string{"authHash": authHash})
}

func (c *Client) authenticate(ctx context.Context, svc string, params any) (*LoginResponse, error) {
	raw, err := c.call(ctx, svc, params, true)
	if err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := decodeInto(svc, raw, &resp); err != nil {
		return nil, err
	}
	if resp.EID == "" {
		return nil, &ProtocolError{
			Svc:        svc,
			StatusCode: http.StatusOK,
			Message:    "login response has no session id",
			Body:       raw,
		}
	}

	c.setSession(resp.EID, resp.User.ID)

	c.logger.Debug().
		Str("svc", svc).
		Int64("user_id", resp.User.ID).
		Str("user", resp.User.Name).
		Msg("Authenticated with Wialon")

	return &resp, nil
}

// Logout closes the current session. The session is cleared once the remote
// side confirms.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.call(ctx, SvcLogout, struct{}{}, false); err != nil {
		return err
	}

	c.logger.Debug().Msg("Logged out of Wialon")
	return nil
}

// CreateAuthHash returns a hash that can open a new session with UseAuthHash.
func (c *Client) CreateAuthHash(ctx context.Context) (string, error) {
	var resp struct {
		AuthHash string `json:"authHash"`
	}
	if err := c.callInto(ctx, SvcCreateAuthHash, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.AuthHash, nil
}

// DuplicateParams are the core/duplicate parameters
type DuplicateParams struct {
	OperateAs              string `json:"operateAs"`
	ContinueCurrentSession bool   `json:"continueCurrentSession"`
}

// DuplicateSession opens a new session for the same or another user. The
// current session of the client is left untouched.
func (c *Client) DuplicateSession(ctx context.Context, params DuplicateParams) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.callInto(ctx, SvcDuplicate, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchSpec describes which items core/search_items returns
type SearchSpec struct {
	ItemsType     ItemType `json:"itemsType"`
	PropName      string   `json:"propName"`
	PropValueMask string   `json:"propValueMask"`
	SortType      string   `json:"sortType"`
	PropType      string   `json:"propType,omitempty"`
	OrLogic       bool     `json:"or_logic"`
}

// SearchItemsParams are the core/search_items parameters
type SearchItemsParams struct {
	Spec  SearchSpec `json:"spec"`
	Force int        `json:"force"`
	Flags int64      `json:"flags"`
	From  int        `json:"from"`
	To    int        `json:"to"`
}

func (p SearchItemsParams) validate() error {
	if p.Spec.ItemsType == "" {
		return usageErrorf(SvcSearchItems, ErrInvalidParams, "spec.itemsType is required")
	}
	if p.Spec.PropName == "" {
		return usageErrorf(SvcSearchItems, ErrInvalidParams, "spec.propName is required")
	}
	if p.Force != 0 && p.Force != 1 {
		return usageErrorf(SvcSearchItems, ErrInvalidParams, "force must be 0 or 1")
	}
	if p.From < 0 || p.To < 0 {
		return usageErrorf(SvcSearchItems, ErrInvalidParams, "from and to must not be negative")
	}
	if p.To != 0 && p.To < p.From {
		return usageErrorf(SvcSearchItems, ErrInvalidParams, "to must not be lower than from")
	}
	return nil
}

// NewSearchByName builds search parameters matching items of one type by name mask.
func NewSearchByName(itemsType ItemType, mask string, flags int64) SearchItemsParams {
	if mask == "" {
		mask = "*"
	}
	return SearchItemsParams{
		Spec: SearchSpec{
			ItemsType:     itemsType,
			PropName:      "sys_name",
			PropValueMask: mask,
			SortType:      "sys_name",
		},
		Force: 1,
		Flags: flags,
	}
}

// SearchItems searches items by property mask.
func (c *Client) SearchItems(ctx context.Context, params SearchItemsParams) (*SearchItemsResponse, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var resp SearchItemsResponse
	if err := c.callInto(ctx, SvcSearchItems, params, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("items_type", string(params.Spec.ItemsType)).
		Int("count", len(resp.Items)).
		Int("total", resp.TotalItemsCount).
		Msg("Retrieved items from Wialon")

	return &resp, nil
}

// SearchItem fetches a single item by id.
func (c *Client) SearchItem(ctx context.Context, id, flags int64) (*SearchItemResponse, error) {
	if id <= 0 {
		return nil, usageErrorf(SvcSearchItem, ErrInvalidParams, "item id must be positive")
	}

	params := struct {
		ID    int64 `json:"id"`
		Flags int64 `json:"flags"`
	}{ID: id, Flags: flags}

	var resp SearchItemResponse
	if err := c.callInto(ctx, SvcSearchItem, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchCall is one request inside core/batch
type BatchCall struct {
	Svc    string `json:"svc"`
	Params any    `json:"params"`
}

// BatchResult is the outcome of one request inside core/batch
type BatchResult struct {
	Raw json.RawMessage
	Err *APIError
}

// Batch executes several requests in one round trip. Errors of individual
// requests are reported per result; only a failure of the batch itself is
// returned as error.
func (c *Client) Batch(ctx context.Context, calls []BatchCall, flags int) ([]BatchResult, error) {
	if len(calls) == 0 {
		return nil, usageErrorf(SvcBatch, ErrInvalidParams, "at least one call is required")
	}

	normalized := make([]BatchCall, len(calls))
	for i, call := range calls {
		call.Svc = strings.TrimSpace(call.Svc)
		if call.Svc == "" {
			return nil, usageErrorf(SvcBatch, ErrInvalidParams, "call %d has no service name", i)
		}
		if call.Svc == SvcBatch {
			return nil, usageErrorf(SvcBatch, ErrInvalidParams, "call %d cannot be a nested batch", i)
		}
		if call.Params == nil {
			call.Params = struct{}{}
		}
		normalized[i] = call
	}

	params := struct {
		Params []BatchCall `json:"params"`
		Flags  int         `json:"flags"`
	}{Params: normalized, Flags: flags}

	var raws []json.RawMessage
	if err := c.callInto(ctx, SvcBatch, params, &raws); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(raws))
	for i, raw := range raws {
		svc := SvcBatch
		if i < len(normalized) {
			svc = normalized[i].Svc
		}
		apiErr, err := parseErrorObject(svc, raw)
		if err != nil {
			return nil, &ProtocolError{
				Svc:        SvcBatch,
				StatusCode: http.StatusOK,
				Message:    err.Error(),
				Body:       raw,
			}
		}
		if apiErr != nil && apiErr.IsSessionExpired() {
			c.clearSession()
		}
		results[i] = BatchResult{Raw: raw, Err: apiErr}
	}

	return results, nil
}

// DataFlagSpec selects items whose data flags are updated
type DataFlagSpec struct {
	Type  string `json:"type"`
	Data  any    `json:"data"`
	Flags int64  `json:"flags"`
	Mode  int    `json:"mode"`
}

// Modes of core/update_data_flags
const (
	DataFlagsModeSet    = 0
	DataFlagsModeAdd    = 1
	DataFlagsModeRemove = 2
)

// UpdateDataFlags changes which item data is kept in the session.
func (c *Client) UpdateDataFlags(ctx context.Context, spec []DataFlagSpec) ([]DataFlagsUpdate, error) {
	if len(spec) == 0 {
		return nil, usageErrorf(SvcUpdateDataFlags, ErrInvalidParams, "at least one spec is required")
	}
	for i, s := range spec {
		switch s.Type {
		case "id", "type", "col", "access":
		default:
			return nil, usageErrorf(SvcUpdateDataFlags, ErrInvalidParams, "spec %d has invalid type %q", i, s.Type)
		}
		if s.Mode < DataFlagsModeSet || s.Mode > DataFlagsModeRemove {
			return nil, usageErrorf(SvcUpdateDataFlags, ErrInvalidParams, "spec %d has invalid mode %d", i, s.Mode)
		}
	}

	params := struct {
		Spec []DataFlagSpec `json:"spec"`
	}{Spec: spec}

	var resp []DataFlagsUpdate
	if err := c.callInto(ctx, SvcUpdateDataFlags, params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// HWTypesParams are the core/get_hw_types parameters
type HWTypesParams struct {
	FilterType   string `json:"filterType,omitempty"`
	FilterValue  []any  `json:"filterValue,omitempty"`
	IncludeType  bool   `json:"includeType"`
	IgnoreRename bool   `json:"ignoreRename"`
}

// GetHWTypes lists the device types known to the server.
func (c *Client) GetHWTypes(ctx context.Context, params HWTypesParams) ([]HWType, error) {
	switch params.FilterType {
	case "", "name", "id", "type":
	default:
		return nil, usageErrorf(SvcGetHWTypes, ErrInvalidParams, "invalid filterType %q", params.FilterType)
	}

	var resp []HWType
	if err := c.callInto(ctx, SvcGetHWTypes, params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
