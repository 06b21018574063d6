package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nestdesk/stager/internal/domain"
)

// SaveProperty creates or updates the property record at the persistence
// boundary. A payload with a PropertyID is an update, otherwise a create.
func (c *Client) SaveProperty(ctx context.Context, tenant string, payload domain.PropertyPayload, token string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode property payload: %w", err)
	}

	method := http.MethodPost
	path := fmt.Sprintf("/v1/%s/properties", tenant)
	if payload.PropertyID != "" {
		method = http.MethodPut
		path = fmt.Sprintf("/v1/%s/properties/%s", tenant, payload.PropertyID)
	}

	resp, err := c.do(ctx, method, path, bytes.NewReader(body), "application/json", token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: save property returned status %d: %s", ErrRequestFailed, resp.StatusCode, readBody(resp))
	}
	return nil
}
