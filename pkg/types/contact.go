package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ContactSnapshot is the requester contact captured when a service request is
// submitted. It is persisted as JSONB and never rewritten afterwards.
type ContactSnapshot struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ClientType string `json:"clientType,omitempty"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Value marshals the snapshot into JSON for Postgres.
func (c ContactSnapshot) Value() (driver.Value, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the snapshot.
func (c *ContactSnapshot) Scan(value any) error {
	if value == nil {
		*c = ContactSnapshot{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("contact snapshot: unsupported scan type %T", value)
	}

	var out ContactSnapshot
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*c = out
	return nil
}
