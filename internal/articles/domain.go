// Package articles implements the article content type: the protected
// resource the authorization gate and ownership-scoping filter guard.
package articles

import (
	"encoding/json"
	"fmt"
)

// RelationID accepts the relation encodings clients send on create: a
// bare id, a single-element id array, or null.
type RelationID struct {
	ID *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RelationID) UnmarshalJSON(data []byte) error {
	var single int64
	if err := json.Unmarshal(data, &single); err == nil {
		r.ID = &single
		return nil
	}
	var many []int64
	if err := json.Unmarshal(data, &many); err == nil {
		if len(many) > 0 {
			r.ID = &many[0]
		}
		return nil
	}
	var null *int64
	if err := json.Unmarshal(data, &null); err == nil && null == nil {
		r.ID = nil
		return nil
	}
	return fmt.Errorf("articles: invalid relation id %s", data)
}

// MarshalJSON implements json.Marshaler.
func (r RelationID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// CreateInput is the create payload, carried in the request body's
// "data" field.
type CreateInput struct {
	Title    string     `json:"title" validate:"required"`
	Author   RelationID `json:"author"`
	Category RelationID `json:"category"`
}
