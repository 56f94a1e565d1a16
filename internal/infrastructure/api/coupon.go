package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type CouponAPI struct {
	client *Client
}

func NewCouponAPI(c *Client) *CouponAPI {
	return &CouponAPI{client: c}
}

func (a *CouponAPI) Filter(ctx context.Context, f CouponFilter) (*CouponList, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(limit))
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.StartDate != "" {
		q.Set("startDate", f.StartDate)
	}
	if f.ExpirationDate != "" {
		q.Set("expirationDate", f.ExpirationDate)
	}
	if f.Status != nil {
		q.Set("status", strconv.Itoa(*f.Status))
	}

	var list CouponList
	if err := a.client.Do(ctx, http.MethodGet, "/coupons/filter", q, nil, &list); err != nil {
		return nil, fmt.Errorf("filter coupons: %w", err)
	}
	return &list, nil
}

func (a *CouponAPI) Get(ctx context.Context, id int64) (*Coupon, error) {
	var c Coupon
	if err := a.client.Do(ctx, http.MethodGet, fmt.Sprintf("/coupons/%d", id), nil, nil, &c); err != nil {
		return nil, fmt.Errorf("get coupon %d: %w", id, err)
	}
	return &c, nil
}

func (a *CouponAPI) UpdateStatus(ctx context.Context, id int64, status int) error {
	q := url.Values{"status": {strconv.Itoa(status)}}
	if err := a.client.Do(ctx, http.MethodPut, fmt.Sprintf("/coupons/update-status/%d", id), q, nil, nil); err != nil {
		return fmt.Errorf("update coupon %d status: %w", id, err)
	}
	return nil
}
