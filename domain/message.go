package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IngestionMessage is the decoded body of a queue message announcing a newly
// uploaded photo. The wire shape is {"object_key": string, "metadata": {...}}.
type IngestionMessage struct {
	ObjectKey string         `json:"object_key"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DecodeIngestionMessage parses and validates a raw queue message body.
// Any body that is not valid JSON, or that lacks a non-empty object_key,
// fails with ErrMalformedMessage and must be dead-lettered without retry.
func DecodeIngestionMessage(body []byte) (*IngestionMessage, error) {
	var msg IngestionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if strings.TrimSpace(msg.ObjectKey) == "" {
		return nil, fmt.Errorf("%w: missing object_key", ErrMalformedMessage)
	}
	return &msg, nil
}
