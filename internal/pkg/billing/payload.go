package billing

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ParsePayload decodes a webhook body. Anything other than a JSON object is
// rejected with ErrMalformedPayload.
func ParsePayload(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedPayload
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p == nil {
		return nil, ErrMalformedPayload
	}
	return p, nil
}

// EventID returns the top level event_id, or "".
func (p Payload) EventID() string {
	return stringAt(map[string]any(p), "event_id")
}

// EventType returns the top level event_type, or "".
func (p Payload) EventType() string {
	return stringAt(map[string]any(p), "event_type")
}

// Marshal renders the payload as canonical JSON (sorted keys).
func (p Payload) Marshal() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// PayloadFromJSON decodes a stored payload; used when reprocessing.
func PayloadFromJSON(raw []byte) (Payload, error) {
	return ParsePayload(raw)
}
