package plates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase passthrough", "kbw46ba", "kbw46ba"},
		{"uppercase folded", "KBW46BA", "kbw46ba"},
		{"spaces and dashes stripped", "KBW 46-BA", "kbw46ba"},
		{"punctuation stripped", "k.b.w:46#ba", "kbw46ba"},
		{"empty", "", ""},
		{"only separators", " --. ", ""},
		{"digits only", "123456", "123456"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		detected  string
		watch     string
		tolerance int
		want      bool
	}{
		{"exact match", "kbw46ba", "kbw46ba", 2, true},
		{"one substitution", "kbw46xa", "kbw46ba", 2, true},
		{"two substitutions", "kbw46xx", "kbw46ba", 2, true},
		{"three substitutions", "kbw4xxx", "kbw46ba", 2, false},
		{"case and formatting ignored", "KBW 46-BA", "kbw46ba", 0, true},
		{"length mismatch never matches", "kbw46b", "kbw46ba", 2, false},
		{"length mismatch even with high tolerance", "kbw46baa", "kbw46ba", 10, false},
		{"empty detected never matches", "", "kbw46ba", 2, false},
		{"empty detected vs empty watch", "", "", 2, false},
		{"zero tolerance requires exact", "kbw46bx", "kbw46ba", 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Matches(tt.detected, tt.watch, tt.tolerance))
		})
	}
}

func TestMatchesIsHammingBound(t *testing.T) {
	t.Parallel()

	// For equal-length plates the match outcome must equal the Hamming
	// distance check, position by position.
	watch := "abc123"
	cases := map[string]int{
		"abc123": 0,
		"xbc123": 1,
		"xyc123": 2,
		"xyz123": 3,
	}
	for detected, distance := range cases {
		assert.Equal(t, distance <= 2, Matches(detected, watch, 2), "plate %s", detected)
	}
}

func TestNewWatchList(t *testing.T) {
	t.Parallel()

	w := NewWatchList([]string{"KBW 46-BA", "kbw46ba", "", "AB-12-CD", "  "}, 2)
	assert.Equal(t, []string{"kbw46ba", "ab12cd"}, w.Entries())
	assert.Equal(t, 2, w.Tolerance())
	assert.False(t, w.Empty())

	empty := NewWatchList(nil, 2)
	assert.True(t, empty.Empty())
}

func TestMatchMap(t *testing.T) {
	t.Parallel()

	w := NewWatchList([]string{"kbw46ba", "zz999zz"}, 2)

	t.Run("no detections still yields full map", func(t *testing.T) {
		t.Parallel()
		got := w.MatchMap(nil)
		assert.Equal(t, map[string]bool{"kbw46ba": false, "zz999zz": false}, got)
	})

	t.Run("any detection matching marks entry", func(t *testing.T) {
		t.Parallel()
		got := w.MatchMap([]string{"aaaaaaa", "kbw46xa"})
		assert.Equal(t, map[string]bool{"kbw46ba": true, "zz999zz": false}, got)
	})

	t.Run("nil watch list yields empty map", func(t *testing.T) {
		t.Parallel()
		var none *WatchList
		assert.Empty(t, none.MatchMap([]string{"kbw46ba"}))
	})
}
