package wialon

import (
	"context"
	"time"
)

// Interval flags of report/exec_report
const (
	IntervalAbsolute int64 = 0x00
	IntervalPrevious int64 = 0x40
)

// ExecReportParams select the report template, object and interval
type ExecReportParams struct {
	ResourceID    int64
	TemplateID    int64
	ObjectID      int64
	ObjectSecID   int64
	From          time.Time
	To            time.Time
	IntervalFlags int64
}

type reportInterval struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Flags int64 `json:"flags"`
}

type execReportRequest struct {
	ReportResourceID  int64          `json:"reportResourceId"`
	ReportTemplateID  int64          `json:"reportTemplateId"`
	ReportObjectID    int64          `json:"reportObjectId"`
	ReportObjectSecID int64          `json:"reportObjectSecId"`
	Interval          reportInterval `json:"interval"`
}

// ExecReport executes a report template. The result stays in the session
// until CleanupResult is called.
func (c *Client) ExecReport(ctx context.Context, params ExecReportParams) (*ReportResult, error) {
	if params.ResourceID <= 0 || params.TemplateID <= 0 || params.ObjectID <= 0 {
		return nil, usageErrorf(SvcExecReport, ErrInvalidParams, "resource, template and object ids must be positive")
	}
	if params.ObjectSecID < 0 {
		return nil, usageErrorf(SvcExecReport, ErrInvalidParams, "reportObjectSecId must not be negative")
	}
	if params.To.Before(params.From) {
		return nil, usageErrorf(SvcExecReport, ErrInvalidParams, "interval ends before it starts")
	}

	req := execReportRequest{
		ReportResourceID:  params.ResourceID,
		ReportTemplateID:  params.TemplateID,
		ReportObjectID:    params.ObjectID,
		ReportObjectSecID: params.ObjectSecID,
		Interval: reportInterval{
			From:  params.From.Unix(),
			To:    params.To.Unix(),
			Flags: params.IntervalFlags,
		},
	}

	var resp struct {
		ReportResult ReportResult `json:"reportResult"`
	}
	if err := c.callInto(ctx, SvcExecReport, req, &resp); err != nil {
		return nil, err
	}
	return &resp.ReportResult, nil
}

// GetResultRows returns rows indexFrom..indexTo of a report table.
func (c *Client) GetResultRows(ctx context.Context, tableIndex, indexFrom, indexTo int) ([]ReportRow, error) {
	if tableIndex < 0 || indexFrom < 0 {
		return nil, usageErrorf(SvcGetResultRows, ErrInvalidParams, "table and row indexes must not be negative")
	}
	if indexTo < indexFrom {
		return nil, usageErrorf(SvcGetResultRows, ErrInvalidParams, "indexTo must not be lower than indexFrom")
	}

	params := struct {
		TableIndex int `json:"tableIndex"`
		IndexFrom  int `json:"indexFrom"`
		IndexTo    int `json:"indexTo"`
	}{TableIndex: tableIndex, IndexFrom: indexFrom, IndexTo: indexTo}

	var rows []ReportRow
	if err := c.callInto(ctx, SvcGetResultRows, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CleanupResult drops the report result held by the session.
func (c *Client) CleanupResult(ctx context.Context) error {
	_, err := c.Call(ctx, SvcCleanupResult, struct{}{})
	return err
}
