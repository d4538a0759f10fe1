package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iksnae/medisnap/internal"
)

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Language  string `json:"language"`
}

// FetchHistory loads the chat thread of a result.
func (c *Client) FetchHistory(ctx context.Context, resultID string) ([]internal.HistoryEntry, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "chat", resultID), nil)
	if err != nil {
		return nil, failure(internal.KindHistoryFetchFailed, "history", "Failed to fetch chat history", err)
	}
	entries, err := decodeHistory(raw)
	if err != nil {
		return nil, failure(internal.KindHistoryFetchFailed, "history", "Failed to fetch chat history", err)
	}
	return entries, nil
}

// decodeHistory accepts {"messages": [...]}, a bare array, or either inside
// an envelope.
func decodeHistory(body []byte) ([]internal.HistoryEntry, error) {
	data, _ := unwrap(body)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '[' {
		var entries []internal.HistoryEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		return entries, nil
	}
	var payload struct {
		Messages []internal.HistoryEntry `json:"messages"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return payload.Messages, nil
}

// Ask posts a follow-up question about a result.
func (c *Client) Ask(ctx context.Context, resultID, question, language string) (internal.Answer, error) {
	if language == "" {
		language = "en"
	}
	raw, err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "chat", ""), askRequest{
		SessionID: resultID,
		Question:  question,
		Language:  language,
	})
	if err != nil {
		return internal.Answer{}, failure(internal.KindAskFailed, "ask", "Failed to ask question", err)
	}
	return DecodeAnswer(raw), nil
}
