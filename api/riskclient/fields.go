package riskclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fieldrisk/api/models"
	"fieldrisk/api/roi"
)

// ListFields calls GET /fields.
func (c *Client) ListFields(ctx context.Context) ([]models.Field, error) {
	var out models.FieldListResponse
	if err := c.do(ctx, "fields_list", http.MethodGet, "/fields", nil, &out); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

// CreateField saves r on the service under name. An empty name lets the
// service pick "Tarla <id>".
func (c *Client) CreateField(ctx context.Context, name string, r roi.ROI) (*models.Field, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	coords, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal coordinates: %w", err)
	}
	req := models.CreateFieldReq{
		Name:        strings.TrimSpace(name),
		Coordinates: coords,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	var out models.FieldResponse
	if err := c.do(ctx, "fields_create", http.MethodPost, "/fields", req, &out); err != nil {
		return nil, err
	}
	return &out.Field, nil
}

// CreateFieldRaw forwards already-encoded coordinates, as received from a
// browser.
func (c *Client) CreateFieldRaw(ctx context.Context, req models.CreateFieldReq) (*models.Field, error) {
	if len(req.Coordinates) == 0 {
		return nil, roi.Invalidf("coordinates are required")
	}
	var out models.FieldResponse
	if err := c.do(ctx, "fields_create", http.MethodPost, "/fields", req, &out); err != nil {
		return nil, err
	}
	return &out.Field, nil
}

// GetField calls GET /fields/{id}.
func (c *Client) GetField(ctx context.Context, id string) (*models.Field, error) {
	if strings.TrimSpace(id) == "" {
		return nil, roi.Invalidf("field id is required")
	}
	var out models.FieldResponse
	if err := c.do(ctx, "fields_get", http.MethodGet, "/fields/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Field, nil
}

// DeleteField calls DELETE /fields/{id}.
func (c *Client) DeleteField(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return roi.Invalidf("field id is required")
	}
	var out models.DeleteResponse
	return c.do(ctx, "fields_delete", http.MethodDelete, "/fields/"+url.PathEscape(id), nil, &out)
}
