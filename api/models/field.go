package models

import "encoding/json"

// Field is a saved field on the remote service. Coordinates keep the wire
// form ([lng,lat] or a closed ring) untouched.
type Field struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Coordinates        json.RawMessage `json:"coordinates"`
	CreatedAt          *string         `json:"created_at"`
	BaselineCalculated bool            `json:"baseline_calculated"`
}

// CreateFieldReq is the body of POST /fields.
type CreateFieldReq struct {
	Name        string          `json:"name,omitempty"`
	Coordinates json.RawMessage `json:"coordinates"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

type FieldResponse struct {
	Success bool  `json:"success"`
	Field   Field `json:"field"`
}

type FieldListResponse struct {
	Success bool    `json:"success"`
	Fields  []Field `json:"fields"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
