package mirror

import (
	"encoding/json"
	"fmt"
	"time"
)

// FormType is the stream label of a mirror event.
type FormType string

const (
	FormPrimary    FormType = "primary"
	FormAdditional FormType = "additional"
)

// Event is an encoded mirror payload ready for a sink.
type Event struct {
	FormType FormType
	// Key is the registration id; Kafka uses it for partitioning.
	Key       string
	Body      []byte
	RequestID string
}

// Encode flattens record's JSON fields and adds timestamp, formType and
// source. Record keys with the same names are overwritten.
func Encode(record any, formType FormType, source string, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	fields["timestamp"] = now.UTC().Format(time.RFC3339Nano)
	fields["formType"] = string(formType)
	fields["source"] = source
	return json.Marshal(fields)
}
