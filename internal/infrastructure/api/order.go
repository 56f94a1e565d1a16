package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type OrderAPI struct {
	client *Client
}

func NewOrderAPI(c *Client) *OrderAPI {
	return &OrderAPI{client: c}
}

func (a *OrderAPI) Get(ctx context.Context, id int64) (*Order, error) {
	var o Order
	if err := a.client.Do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &o); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

func (a *OrderAPI) UpdateStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	if err := a.client.Do(ctx, http.MethodPut, fmt.Sprintf("/orders/status/%d", id), nil, body, nil); err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	return nil
}

func (a *OrderAPI) Timeline(ctx context.Context, orderID int64) ([]OrderTimeline, error) {
	q := url.Values{"orderId": {strconv.FormatInt(orderID, 10)}}
	var out []OrderTimeline
	if err := a.client.Do(ctx, http.MethodGet, "/order-timeline", q, nil, &out); err != nil {
		return nil, fmt.Errorf("get order %d timeline: %w", orderID, err)
	}
	return out, nil
}
