// Package plates implements plate normalization and fuzzy watch-list matching.
package plates

// DefaultTolerance is the number of character substitutions allowed before a
// detected plate no longer counts as a watched plate. Two keeps single
// misreads of OCR-confusable characters (0/O, 8/B) from hiding a hit.
const DefaultTolerance = 2

// Normalize reduces a plate string to lowercase alphanumerics so that server
// formatting ("KBW 46-BA") and configured entries ("kbw46ba") compare equal.
func Normalize(plate string) string {
	out := make([]byte, 0, len(plate))
	for i := 0; i < len(plate); i++ {
		c := plate[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		}
	}
	return string(out)
}

// Matches reports whether a detected plate fuzzy-matches a watch entry.
// Both inputs are normalized before comparison. Only substitutions are
// tolerated: strings of different length never match, and an empty detected
// plate matches nothing.
func Matches(detected, watchEntry string, tolerance int) bool {
	d := Normalize(detected)
	w := Normalize(watchEntry)
	if d == "" {
		return false
	}
	if len(d) != len(w) {
		return false
	}
	mismatches := 0
	for i := 0; i < len(d); i++ {
		if d[i] != w[i] {
			mismatches++
			if mismatches > tolerance {
				return false
			}
		}
	}
	return true
}

// WatchList is an immutable set of plates to monitor, keyed by normalized form.
type WatchList struct {
	entries   []string
	tolerance int
}

// NewWatchList builds a WatchList from configured plate strings. Entries are
// normalized and deduplicated, preserving first-seen order. Entries that
// normalize to the empty string are dropped.
func NewWatchList(plates []string, tolerance int) *WatchList {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	seen := make(map[string]bool, len(plates))
	entries := make([]string, 0, len(plates))
	for _, p := range plates {
		n := Normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		entries = append(entries, n)
	}
	return &WatchList{entries: entries, tolerance: tolerance}
}

// Empty reports whether the watch list has no entries.
func (w *WatchList) Empty() bool {
	return w == nil || len(w.entries) == 0
}

// Entries returns the normalized watch entries in configuration order.
func (w *WatchList) Entries() []string {
	if w == nil {
		return nil
	}
	out := make([]string, len(w.entries))
	copy(out, w.entries)
	return out
}

// Tolerance returns the configured substitution tolerance.
func (w *WatchList) Tolerance() int {
	if w == nil {
		return DefaultTolerance
	}
	return w.tolerance
}

// MatchMap computes the watched-plate map for one scan: every watch entry is
// present with a boolean, true when any detected plate fuzzy-matches it. The
// map is rebuilt in full on every call.
func (w *WatchList) MatchMap(detectedPlates []string) map[string]bool {
	if w == nil {
		return map[string]bool{}
	}
	result := make(map[string]bool, len(w.entries))
	for _, entry := range w.entries {
		result[entry] = false
		for _, plate := range detectedPlates {
			if Matches(plate, entry, w.tolerance) {
				result[entry] = true
				break
			}
		}
	}
	return result
}
