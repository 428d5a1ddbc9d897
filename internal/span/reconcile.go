// Package span maps highlighted fragments onto the original query text and
// tracks their confirmation state.
package span

import (
	"sort"
	"strings"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

// SegmentKind tags a rendered segment
type SegmentKind string

const (
	KindPlain    SegmentKind = "plain"
	KindFragment SegmentKind = "fragment"
)

// Segment is one renderable piece of the query, in document order
type Segment struct {
	Kind     SegmentKind     `json:"kind"`
	Text     string          `json:"text"`
	Start    int             `json:"start"` // rune offset into the query
	End      int             `json:"end"`
	Fragment *model.Fragment `json:"fragment,omitempty"` // Set for KindFragment
}

// Reconcile splits text into alternating plain and fragment segments.
//
// Fragments are placed by their offsets. A fragment whose offsets are missing
// or do not cover its own text falls back to a forward substring search from
// the current cursor; if the text cannot be found it is skipped. Fragment
// segments always carry the slice of text they cover, so concatenating every
// segment's Text reproduces the input.
func Reconcile(text string, fragments []model.Fragment) []Segment {
	return reconcile([]rune(text), sortByStart(fragments))
}

func reconcile(runes []rune, ordered []model.Fragment) []Segment {
	var segments []Segment
	cursor := 0

	for i := range ordered {
		frag := &ordered[i]

		start, end, ok := locate(runes, *frag, cursor)
		if !ok {
			continue
		}

		if start > cursor {
			segments = append(segments, plain(runes, cursor, start))
		}
		segments = append(segments, Segment{
			Kind:     KindFragment,
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
			Fragment: frag,
		})
		cursor = end
	}

	if cursor < len(runes) {
		segments = append(segments, plain(runes, cursor, len(runes)))
	}

	return segments
}

// locate resolves the range a fragment occupies at or after cursor
func locate(runes []rune, frag model.Fragment, cursor int) (int, int, bool) {
	needle := []rune(frag.Text)

	if frag.HasOffsets() && frag.Start >= cursor && frag.End <= len(runes) {
		if len(needle) == 0 || equalRunes(runes[frag.Start:frag.End], needle) {
			return frag.Start, frag.End, true
		}
	}

	if len(needle) == 0 {
		return 0, 0, false
	}

	idx := indexRunes(runes, needle, cursor)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(needle), true
}

func plain(runes []rune, start, end int) Segment {
	return Segment{
		Kind:  KindPlain,
		Text:  string(runes[start:end]),
		Start: start,
		End:   end,
	}
}

func sortByStart(fragments []model.Fragment) []model.Fragment {
	ordered := make([]model.Fragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})
	return ordered
}

// indexRunes returns the first index >= from where needle occurs, or -1
func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if equalRunes(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Join concatenates segment texts; the inverse of Reconcile
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
