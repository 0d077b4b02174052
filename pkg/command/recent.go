package command

// DefaultRecentSize is the duplicate-suppression window.
const DefaultRecentSize = 3

// RecentBuffer is a fixed-capacity most-recent-first ring of raw
// recognized strings, used purely for duplicate suppression.
type RecentBuffer struct {
	entries []string
	head    int
	count   int
}

// NewRecentBuffer creates a buffer holding the last size utterances.
// A size <= 0 falls back to DefaultRecentSize.
func NewRecentBuffer(size int) *RecentBuffer {
	if size <= 0 {
		size = DefaultRecentSize
	}
	return &RecentBuffer{entries: make([]string, size)}
}

// Add records an utterance, evicting the oldest when full.
func (b *RecentBuffer) Add(text string) {
	b.entries[b.head] = text
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// Contains reports whether the exact text is in the window.
func (b *RecentBuffer) Contains(text string) bool {
	for i := 0; i < b.count; i++ {
		if b.entries[i] == text {
			return true
		}
	}
	return false
}

// Len returns the number of recorded utterances, capped at capacity.
func (b *RecentBuffer) Len() int {
	return b.count
}
