package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// JobPatch is the combined schedule/status update accepted by the remote
// job endpoint. Nil fields are omitted and left untouched remotely.
type JobPatch struct {
	Start  *time.Time `json:"scheduled_start,omitempty"`
	End    *time.Time `json:"scheduled_end,omitempty"`
	Status string     `json:"status,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p JobPatch) IsZero() bool {
	return p.Start == nil && p.End == nil && p.Status == ""
}

// UpdateJob patches the remote job's schedule window and/or status in a
// single call. This is the orchestrator's load-bearing step.
func (c *Client) UpdateJob(ctx context.Context, remoteJobID string, patch JobPatch) error {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID)
	if err := c.do(ctx, http.MethodPatch, path, patch, nil); err != nil {
		return fmt.Errorf("job update failed: %w", err)
	}
	return nil
}

type dispatchRequest struct {
	TechnicianID string `json:"technician_id"`
}

// DispatchTechnician assigns a technician to the remote job. Dispatch
// rejections are frequently transient capacity conflicts on the remote side.
func (c *Client) DispatchTechnician(ctx context.Context, remoteJobID, technicianID string) error {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID) + "/dispatch"
	if err := c.do(ctx, http.MethodPost, path, dispatchRequest{TechnicianID: technicianID}, nil); err != nil {
		return fmt.Errorf("technician dispatch failed: %w", err)
	}
	return nil
}

type noteRequest struct {
	Body string `json:"body"`
}

// AppendNote appends a free-text note to the remote job. Notes are
// append-only on the remote side.
func (c *Client) AppendNote(ctx context.Context, remoteJobID, note string) error {
	path := "/v1/jobs/" + url.PathEscape(remoteJobID) + "/notes"
	if err := c.do(ctx, http.MethodPost, path, noteRequest{Body: note}, nil); err != nil {
		return fmt.Errorf("note append failed: %w", err)
	}
	return nil
}
