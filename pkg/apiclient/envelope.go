package apiclient

import (
	"encoding/json"
	"fmt"
)

// envelopeKeys are the keys allowed next to "data" in a success wrapper.
var envelopeKeys = map[string]bool{
	"data":    true,
	"success": true,
	"message": true,
}

// unwrapEnvelope returns the "data" member of a {success, data} or {data}
// wrapper. Any other body is returned unchanged.
func unwrapEnvelope(body []byte) []byte {
	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) != nil {
		return body
	}
	data, ok := obj["data"]
	if !ok {
		return body
	}
	for k := range obj {
		if !envelopeKeys[k] {
			return body
		}
	}
	return data
}

// decodeBody unwraps the envelope and decodes into result. A nil result or
// an empty body is not an error.
func decodeBody(body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}
	payload := unwrapEnvelope(body)
	if raw, ok := result.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], payload...)
		return nil
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
