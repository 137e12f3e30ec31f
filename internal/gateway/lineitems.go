package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// LineItem is a service line as held by the remote system. The remote system
// assigns item ids on creation; they are not preserved across replacement.
type LineItem struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
}

// NewLineItem is the payload for adding a service line. ServiceID carries the
// canonical catalog identifier when the name resolved; otherwise only the raw
// name is sent.
type NewLineItem struct {
	ServiceID string   `json:"service_id,omitempty"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price,omitempty"`
}

type lineItemsResponse struct {
	Items []LineItem `json:"items"`
}

// ListLineItems enumerates the remote job's current service lines.
func (c *Client) ListLineItems(ctx context.Context, remoteJobID string) ([]LineItem, error) {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID) + "/line_items"
	var response lineItemsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("line item list failed: %w", err)
	}
	return response.Items, nil
}

// DeleteLineItem removes one service line from the remote job.
func (c *Client) DeleteLineItem(ctx context.Context, remoteJobID, lineItemID string) error {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID) + "/line_items/" + url.PathEscape(lineItemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("line item delete failed: %w", err)
	}
	return nil
}

// AddLineItem appends one service line to the remote job.
func (c *Client) AddLineItem(ctx context.Context, remoteJobID string, item NewLineItem) error {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID) + "/line_items"
	if err := c.do(ctx, http.MethodPost, path, item, nil); err != nil {
		return fmt.Errorf("line item add failed: %w", err)
	}
	return nil
}
