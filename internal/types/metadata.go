package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a string key-value map persisted as JSONB alongside an entity
type Metadata map[string]string

// Value implements driver.Valuer so Metadata can be written as JSONB
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner so Metadata can be read back from JSONB
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata scan type %T", value)
	}
}
