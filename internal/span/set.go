package span

import (
	"errors"
	"fmt"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrOverlap is returned when a candidate range intersects an existing fragment
	ErrOverlap = errors.New("fragment overlaps an existing fragment")
	// ErrNotFound is returned for an unknown fragment id
	ErrNotFound = errors.New("fragment not found")
	// ErrInvalidRange is returned for empty or out-of-bounds ranges
	ErrInvalidRange = errors.New("invalid fragment range")
	// ErrNoMatches is returned when confirming without any terminology match
	ErrNoMatches = errors.New("confirmation requires at least one terminology match")
)

// Set holds the non-overlapping fragments of a single query.
// It is not safe for concurrent use; the owner serialises access.
type Set struct {
	fragments []model.Fragment
}

// NewSet returns an empty fragment set
func NewSet() *Set {
	return &Set{}
}

// FromEntities builds a set from an extraction response.
// Entities that overlap an earlier one, or that carry no offsets and whose
// text cannot be found, are dropped; the count is returned so callers can log it.
func FromEntities(text string, entities []model.Entity) (*Set, int) {
	s := NewSet()
	dropped := 0
	runes := []rune(text)
	cursor := 0

	for _, e := range entities {
		frag := model.Fragment{
			Text:  e.Word,
			Start: e.Start,
			End:   e.End,
		}
		// Offset-less entities are resolved by forward search
		if !frag.HasOffsets() {
			idx := indexRunes(runes, []rune(e.Word), cursor)
			if idx < 0 {
				dropped++
				continue
			}
			frag.Start, frag.End = idx, idx+len([]rune(e.Word))
			cursor = frag.End
		}
		if _, err := s.insert(frag, len(runes)); err != nil {
			dropped++
		}
	}

	return s, dropped
}

// Insert validates and adds an unconfirmed fragment, returning it with a fresh ID.
// length is the rune length of the query the fragment indexes into.
func (s *Set) Insert(frag model.Fragment, length int) (model.Fragment, error) {
	return s.insert(frag, length)
}

func (s *Set) insert(frag model.Fragment, length int) (model.Fragment, error) {
	if frag.Start < 0 || frag.End <= frag.Start || frag.End > length {
		return model.Fragment{}, fmt.Errorf("%w: [%d,%d) in text of length %d", ErrInvalidRange, frag.Start, frag.End, length)
	}

	for _, existing := range s.fragments {
		if existing.Overlaps(frag) {
			return model.Fragment{}, fmt.Errorf("%w: [%d,%d) intersects %q [%d,%d)",
				ErrOverlap, frag.Start, frag.End, existing.Text, existing.Start, existing.End)
		}
	}

	frag.ID = uuid.NewString()
	frag.Confirmed = false
	frag.Matches = nil
	s.fragments = append(s.fragments, frag)

	return frag, nil
}

// Get returns a copy of the fragment with the given id
func (s *Set) Get(id string) (model.Fragment, bool) {
	i := s.index(id)
	if i < 0 {
		return model.Fragment{}, false
	}
	return clone(s.fragments[i]), true
}

// Confirm attaches terminology matches and marks the fragment confirmed.
// Repeated confirmation merges matches, de-duplicated by code.
func (s *Set) Confirm(id string, matches []model.TerminologyMatch) error {
	if len(matches) == 0 {
		return ErrNoMatches
	}

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	frag := &s.fragments[i]
	seen := make(map[string]bool, len(frag.Matches))
	for _, m := range frag.Matches {
		seen[m.Code] = true
	}
	for _, m := range matches {
		if seen[m.Code] {
			continue
		}
		seen[m.Code] = true
		frag.Matches = append(frag.Matches, m)
	}
	frag.Confirmed = true

	return nil
}

// Delete removes a fragment regardless of its state
func (s *Set) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.fragments = append(s.fragments[:i], s.fragments[i+1:]...)
	return nil
}

// AllConfirmed is true iff the set is non-empty and every fragment is confirmed
func (s *Set) AllConfirmed() bool {
	if len(s.fragments) == 0 {
		return false
	}
	for _, f := range s.fragments {
		if !f.Confirmed {
			return false
		}
	}
	return true
}

// Len returns the number of fragments
func (s *Set) Len() int {
	return len(s.fragments)
}

// Unconfirmed returns how many fragments still need a mapping
func (s *Set) Unconfirmed() int {
	n := 0
	for _, f := range s.fragments {
		if !f.Confirmed {
			n++
		}
	}
	return n
}

// Fragments returns copies of the fragments in document order
func (s *Set) Fragments() []model.Fragment {
	out := make([]model.Fragment, 0, len(s.fragments))
	for _, f := range sortByStart(s.fragments) {
		out = append(out, clone(f))
	}
	return out
}

// TermPairs flattens confirmed fragments into (fragment text, code) pairs
func (s *Set) TermPairs() []model.TermPair {
	var pairs []model.TermPair
	for _, f := range sortByStart(s.fragments) {
		if !f.Confirmed {
			continue
		}
		for _, m := range f.Matches {
			pairs = append(pairs, model.TermPair{Term: f.Text, Code: m.Code})
		}
	}
	return pairs
}

func (s *Set) index(id string) int {
	for i, f := range s.fragments {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func clone(f model.Fragment) model.Fragment {
	if f.Matches != nil {
		f.Matches = append([]model.TerminologyMatch(nil), f.Matches...)
	}
	return f
}
