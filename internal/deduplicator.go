package internal

// Deduplicator removes repeated messages
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate drops messages whose id was already seen, keeping the first
// occurrence and the original order. It returns the number dropped.
func (d *Deduplicator) Deduplicate(messages []Message) ([]Message, int) {
	seen := make(map[string]bool, len(messages))
	unique := make([]Message, 0, len(messages))

	for _, msg := range messages {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		unique = append(unique, msg)
	}

	return unique, len(messages) - len(unique)
}
