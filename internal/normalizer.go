package internal

import "fmt"

// Normalizer converts service history entries to transcript messages
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeHistory converts entries in server order. Entries without an id
// get "history-<index>".
func (n *Normalizer) NormalizeHistory(entries []HistoryEntry) []Message {
	messages := make([]Message, 0, len(entries))
	for i, e := range entries {
		messages = append(messages, n.normalizeEntry(i, e))
	}
	return messages
}

func (n *Normalizer) normalizeEntry(i int, e HistoryEntry) Message {
	id := e.ID
	if id == "" {
		id = fmt.Sprintf("history-%d", i)
	}
	return Message{
		ID:        id,
		Role:      n.normalizeRole(e.Role),
		Content:   e.Content,
		Origin:    OriginHistory,
		CreatedAt: e.CreatedAt,
	}
}

// normalizeRole maps "user" to RoleUser and anything else to RoleAssistant
func (n *Normalizer) normalizeRole(role string) Role {
	if role == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}
