package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var emptyPayload = json.RawMessage(`{}`)

// EncodePayload converts an arbitrary value into the opaque JSON payload.
// Raw JSON is validated and compacted; nil becomes an empty object.
func EncodePayload(v any) (json.RawMessage, error) {
	var raw []byte
	switch p := v.(type) {
	case nil:
		return emptyPayload, nil
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %w", ErrInvalidInput, err)
		}
		return b, nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyPayload, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: payload is not valid JSON: %w", ErrInvalidInput, err)
	}
	return buf.Bytes(), nil
}
