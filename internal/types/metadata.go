package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time assertions that EventMetadata implements both sql.Scanner and
// driver.Valuer, catching signature drift at compile time rather than runtime.
var (
	_ sql.Scanner   = (*EventMetadata)(nil)
	_ driver.Valuer = EventMetadata(nil)
)

// EventMetadata is the opaque key/value bag stored in the event_logs.metadata
// JSONB column. The scan scheduler uses it to cache the precomputed message
// ("message") and the timezone that produced the entry ("timezone") at
// creation time.
type EventMetadata map[string]any

// Scan implements sql.Scanner for reading JSONB from the database.
func (m *EventMetadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, m)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (m EventMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
