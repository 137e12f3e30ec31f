package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-version"
)

// MinAPIVersion is the oldest remote API version this client speaks. The
// line-item endpoints changed shape in 2.3.
const MinAPIVersion = "2.3.0"

type metaResponse struct {
	APIVersion string `json:"api_version"`
}

// APIVersion retrieves the remote system's reported API version.
func (c *Client) APIVersion(ctx context.Context) (string, error) {
	var response metaResponse
	if err := c.do(ctx, http.MethodGet, "/v1/meta", nil, &response); err != nil {
		return "", fmt.Errorf("meta probe failed: %w", err)
	}
	if strings.TrimSpace(response.APIVersion) == "" {
		return "", fmt.Errorf("remote system reported no api_version")
	}
	return response.APIVersion, nil
}

// CheckCompatibility probes the remote system and rejects API versions older
// than MinAPIVersion.
func (c *Client) CheckCompatibility(ctx context.Context) error {
	reported, err := c.APIVersion(ctx)
	if err != nil {
		return err
	}

	remote, err := version.NewVersion(normalizeVersion(reported))
	if err != nil {
		return fmt.Errorf("invalid remote api version %q: %w", reported, err)
	}
	minimum, err := version.NewVersion(MinAPIVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum api version %q: %w", MinAPIVersion, err)
	}

	if remote.LessThan(minimum) {
		return fmt.Errorf("remote api version %s is older than minimum supported %s", reported, MinAPIVersion)
	}
	return nil
}

// normalizeVersion trims whitespace and a leading "v" prefix.
func normalizeVersion(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "v")
	return value
}
