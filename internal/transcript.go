package internal

import "fmt"

// Transcript is an ordered, append-only list of chat messages with unique
// ids. It is not safe for concurrent use; ChatSync confines it to its loop.
type Transcript struct {
	messages []Message
	index    map[string]int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{index: make(map[string]int)}
}

// Append adds m at the end.
func (t *Transcript) Append(m Message) error {
	if _, dup := t.index[m.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateMessageID, m.ID)
	}
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
	return nil
}

// Replace swaps the whole content for msgs, keeping their order. Repeated
// ids keep the first occurrence.
func (t *Transcript) Replace(msgs []Message) int {
	t.messages = t.messages[:0]
	t.index = make(map[string]int, len(msgs))
	dropped := 0
	for _, m := range msgs {
		if err := t.Append(m); err != nil {
			dropped++
		}
	}
	return dropped
}

// SetOrigin updates the origin of an existing message.
func (t *Transcript) SetOrigin(id string, origin Origin) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	t.messages[i].Origin = origin
	return true
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the content.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Clear empties the transcript.
func (t *Transcript) Clear() {
	t.Replace(nil)
}
