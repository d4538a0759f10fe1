package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/iksnae/medisnap/internal"
)

// DecodeAnswer turns whatever the chat endpoint returned into an Answer. It
// never fails: unknown shapes are coerced to text, and blank text is left
// for the caller to treat as an empty answer.
func DecodeAnswer(body []byte) internal.Answer {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return internal.Answer{Kind: internal.AnswerUnrecognized}
	}
	if !json.Valid(trimmed) {
		return internal.Answer{Kind: internal.AnswerUnrecognized, Value: string(trimmed)}
	}
	if data, env := unwrap(trimmed); env != nil {
		return DecodeAnswer(data)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return internal.Answer{Kind: internal.AnswerUnrecognized, Value: string(trimmed)}
	}

	switch t := v.(type) {
	case string:
		return internal.Answer{Kind: internal.AnswerString, Value: t}
	case map[string]any:
		if a, ok := t["answer"]; ok {
			return internal.Answer{Kind: internal.AnswerObject, Value: coerce(a)}
		}
	}
	return internal.Answer{Kind: internal.AnswerUnrecognized, Value: coerce(v)}
}

func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	case []any:
		if len(t) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
