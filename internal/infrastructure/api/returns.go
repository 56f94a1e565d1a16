package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ReturnAPI covers both the customer and the admin return-request endpoints.
type ReturnAPI struct {
	client *Client
}

func NewReturnAPI(c *Client) *ReturnAPI {
	return &ReturnAPI{client: c}
}

// ListMine lists the caller's return requests, optionally filtered.
func (a *ReturnAPI) ListMine(ctx context.Context, q, status string) ([]ReturnRequest, error) {
	params := url.Values{}
	if s := strings.TrimSpace(q); s != "" {
		params.Set("q", s)
	}
	if status != "" {
		params.Set("status", status)
	}

	var out []ReturnRequest
	if err := a.client.Do(ctx, http.MethodGet, "/returns/user", params, nil, &out); err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	return out, nil
}

func (a *ReturnAPI) Get(ctx context.Context, id int64) (*ReturnRequest, error) {
	var r ReturnRequest
	if err := a.client.Do(ctx, http.MethodGet, fmt.Sprintf("/returns/%d", id), nil, nil, &r); err != nil {
		return nil, fmt.Errorf("get return %d: %w", id, err)
	}
	return &r, nil
}

func (a *ReturnAPI) Create(ctx context.Context, req CreateReturnRequest) (*ReturnRequest, error) {
	var r ReturnRequest
	if err := a.client.Do(ctx, http.MethodPost, "/returns", nil, req, &r); err != nil {
		return nil, fmt.Errorf("create return: %w", err)
	}
	return &r, nil
}

func (a *ReturnAPI) AdminList(ctx context.Context, page, size int, status string) (*Page[ReturnRequest], error) {
	if size <= 0 {
		size = 10
	}
	params := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if status != "" {
		params.Set("status", status)
	}

	var out Page[ReturnRequest]
	if err := a.client.Do(ctx, http.MethodGet, "/returns/admin", params, nil, &out); err != nil {
		return nil, fmt.Errorf("admin list returns: %w", err)
	}
	return &out, nil
}

func (a *ReturnAPI) AdminGet(ctx context.Context, id int64) (*ReturnRequest, error) {
	var r ReturnRequest
	if err := a.client.Do(ctx, http.MethodGet, fmt.Sprintf("/returns/admin/%d", id), nil, nil, &r); err != nil {
		return nil, fmt.Errorf("admin get return %d: %w", id, err)
	}
	return &r, nil
}

// AdminUpdateStatus moves a return request to status. Refund details are
// sent only for ReturnRefunded and ignored otherwise.
func (a *ReturnAPI) AdminUpdateStatus(ctx context.Context, id int64, status string, refund *RefundDetails) error {
	payload := map[string]any{
		"returnRequestId": id,
		"status":          status,
	}
	if status == ReturnRefunded {
		if refund == nil || refund.RefundMethod == "" {
			return fmt.Errorf("update return %d: refund method is required for %s", id, ReturnRefunded)
		}
		payload["refundMethod"] = refund.RefundMethod
		payload["referenceCode"] = refund.ReferenceCode
		payload["refundNote"] = refund.RefundNote
	}

	if err := a.client.Do(ctx, http.MethodPost, "/returns/admin/update-status", nil, payload, nil); err != nil {
		return fmt.Errorf("update return %d status: %w", id, err)
	}
	return nil
}
