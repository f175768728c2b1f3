package widget

import "chat-widget/internal/domain"

// Transcript is the ordered, append-only list of entries exchanged in one
// session. It is not safe for concurrent use; the owning Controller serializes
// access.
type Transcript struct {
	entries []domain.TranscriptEntry
}

func (t *Transcript) Append(entry domain.TranscriptEntry) {
	t.entries = append(t.entries, entry)
}

// Last returns the most recently appended entry.
func (t *Transcript) Last() (domain.TranscriptEntry, bool) {
	if len(t.entries) == 0 {
		return domain.TranscriptEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Entries returns a copy of the transcript in display order.
func (t *Transcript) Entries() []domain.TranscriptEntry {
	out := make([]domain.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
