package client

import (
	"bytes"
	"encoding/json"
)

// Envelope is the service's generic response wrapper.
type Envelope struct {
	ERC   int             `json:"erc"`
	Msg   string          `json:"msg"`
	Total *int            `json:"total"`
	Next  *string         `json:"next"`
	Data  json.RawMessage `json:"data"`
}

// unwrap returns the data member of an envelope, or body unchanged when it is
// not one. An envelope is recognised by a data member next to erc or msg.
func unwrap(body []byte) (json.RawMessage, *Envelope) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return trimmed, nil
	}
	_, hasData := probe["data"]
	_, hasERC := probe["erc"]
	_, hasMsg := probe["msg"]
	if !hasData || (!hasERC && !hasMsg) {
		return trimmed, nil
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed, nil
	}
	return env.Data, &env
}
