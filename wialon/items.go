package wialon

import (
	"context"
	"strings"
)

// CreateUnitParams are the core/create_unit parameters
type CreateUnitParams struct {
	CreatorID int64  `json:"creatorId"`
	Name      string `json:"name"`
	HWTypeID  int64  `json:"hwTypeId"`
	DataFlags int64  `json:"dataFlags"`
}

// CreateUnit creates a unit owned by CreatorID.
func (c *Client) CreateUnit(ctx context.Context, params CreateUnitParams) (*CreateItemResponse, error) {
	params.Name = strings.TrimSpace(params.Name)
	if params.CreatorID <= 0 {
		return nil, usageErrorf(SvcCreateUnit, ErrInvalidParams, "creatorId must be positive")
	}
	if params.Name == "" {
		return nil, usageErrorf(SvcCreateUnit, ErrInvalidParams, "name is required")
	}
	if params.HWTypeID <= 0 {
		return nil, usageErrorf(SvcCreateUnit, ErrInvalidParams, "hwTypeId must be positive")
	}

	var resp CreateItemResponse
	if err := c.callInto(ctx, SvcCreateUnit, params, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().Int64("item_id", resp.Item.ID).Str("name", resp.Item.Name).Msg("Created unit")
	return &resp, nil
}

// UpdateName renames an item and returns the name stored by the server.
func (c *Client) UpdateName(ctx context.Context, itemID int64, name string) (string, error) {
	name = strings.TrimSpace(name)
	if itemID <= 0 {
		return "", usageErrorf(SvcUpdateName, ErrInvalidParams, "itemId must be positive")
	}
	if name == "" {
		return "", usageErrorf(SvcUpdateName, ErrInvalidParams, "name is required")
	}

	params := struct {
		ItemID int64  `json:"itemId"`
		Name   string `json:"name"`
	}{ItemID: itemID, Name: name}

	var resp struct {
		Name string `json:"nm"`
	}
	if err := c.callInto(ctx, SvcUpdateName, params, &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, itemID int64) error {
	if itemID <= 0 {
		return usageErrorf(SvcDeleteItem, ErrInvalidParams, "itemId must be positive")
	}

	params := struct {
		ItemID int64 `json:"itemId"`
	}{ItemID: itemID}

	if _, err := c.Call(ctx, SvcDeleteItem, params); err != nil {
		return err
	}

	c.logger.Info().Int64("item_id", itemID).Msg("Deleted item")
	return nil
}

// ExecCommandParams are the unit/exec_cmd parameters
type ExecCommandParams struct {
	ItemID      int64  `json:"itemId"`
	CommandName string `json:"commandName"`
	LinkType    string `json:"linkType"`
	Param       string `json:"param"`
	Timeout     int    `json:"timeout"`
	Flags       int64  `json:"flags"`
}

// ExecCommand sends a command to a unit.
func (c *Client) ExecCommand(ctx context.Context, params ExecCommandParams) error {
	if params.ItemID <= 0 {
		return usageErrorf(SvcExecCmd, ErrInvalidParams, "itemId must be positive")
	}
	if strings.TrimSpace(params.CommandName) == "" {
		return usageErrorf(SvcExecCmd, ErrInvalidParams, "commandName is required")
	}
	if params.Timeout < 0 {
		return usageErrorf(SvcExecCmd, ErrInvalidParams, "timeout must not be negative")
	}

	_, err := c.Call(ctx, SvcExecCmd, params)
	return err
}

// UpdateUnitGroupUnits replaces the units of a unit group and returns the
// resulting member ids.
func (c *Client) UpdateUnitGroupUnits(ctx context.Context, groupID int64, unitIDs []int64) ([]int64, error) {
	if groupID <= 0 {
		return nil, usageErrorf(SvcUpdateGroupUnits, ErrInvalidParams, "itemId must be positive")
	}
	if unitIDs == nil {
		unitIDs = []int64{}
	}
	for _, id := range unitIDs {
		if id <= 0 {
			return nil, usageErrorf(SvcUpdateGroupUnits, ErrInvalidParams, "unit id %d is invalid", id)
		}
	}

	params := struct {
		ItemID int64   `json:"itemId"`
		Units  []int64 `json:"units"`
	}{ItemID: groupID, Units: unitIDs}

	var resp struct {
		Units []int64 `json:"u"`
	}
	if err := c.callInto(ctx, SvcUpdateGroupUnits, params, &resp); err != nil {
		return nil, err
	}
	return resp.Units, nil
}
