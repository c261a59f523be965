package command

// History is the append-only list of submitted command lines plus a browse
// cursor. The cursor ranges over [0, Len()]; Len() means the line is fresh.
type History struct {
	entries []string
	cursor  int
}

// Append records a submitted line and resets the cursor to fresh.
func (h *History) Append(line string) {
	h.entries = append(h.entries, line)
	h.cursor = len(h.entries)
}

// Prev moves one step toward older entries and returns the selected entry.
// It reports false when there is nowhere to move.
func (h *History) Prev() (string, bool) {
	if h.cursor <= 0 {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Next moves one step toward newer entries. Moving past the newest entry
// returns an empty line and marks the cursor fresh.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", true
	}
	return h.entries[h.cursor], true
}

// Len returns the number of recorded lines.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the current browse position.
func (h *History) Cursor() int { return h.cursor }

// Fresh reports whether the user is not browsing history.
func (h *History) Fresh() bool { return h.cursor == len(h.entries) }

// Entries returns a copy of the recorded lines, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
