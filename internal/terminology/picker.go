package terminology

import (
	"fmt"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

// DefaultPageSize is the number of candidates shown at once
const DefaultPageSize = 15

// Picker pages through candidates and tracks the user's selection.
// Selection is keyed by concept code and survives page changes.
type Picker struct {
	matches  []model.TerminologyMatch
	pageSize int
	page     int
	selected map[string]bool
}

// NewPicker creates a picker positioned on the first page
func NewPicker(matches []model.TerminologyMatch, pageSize int) *Picker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Picker{
		matches:  matches,
		pageSize: pageSize,
		selected: make(map[string]bool),
	}
}

// Total is the number of candidates
func (p *Picker) Total() int {
	return len(p.matches)
}

// Pages is the number of pages, at least one
func (p *Picker) Pages() int {
	if len(p.matches) == 0 {
		return 1
	}
	return (len(p.matches) + p.pageSize - 1) / p.pageSize
}

// Page is the current zero-based page
func (p *Picker) Page() int {
	return p.page
}

// Next advances a page and reports whether it moved
func (p *Picker) Next() bool {
	if p.page+1 >= p.Pages() {
		return false
	}
	p.page++
	return true
}

// Prev goes back a page and reports whether it moved
func (p *Picker) Prev() bool {
	if p.page == 0 {
		return false
	}
	p.page--
	return true
}

// Items returns the candidates on the current page
func (p *Picker) Items() []model.TerminologyMatch {
	from, to := p.bounds()
	return p.matches[from:to]
}

// Range returns the 1-based first and last positions shown and the total
func (p *Picker) Range() (first, last, total int) {
	from, to := p.bounds()
	if from == to {
		return 0, 0, len(p.matches)
	}
	return from + 1, to, len(p.matches)
}

// RangeText renders the range as "1–15 of 40" using the given word for "of"
func (p *Picker) RangeText(of string) string {
	first, last, total := p.Range()
	return fmt.Sprintf("%d–%d %s %d", first, last, of, total)
}

// Toggle flips the selection of the i-th item on the current page
func (p *Picker) Toggle(i int) bool {
	items := p.Items()
	if i < 0 || i >= len(items) {
		return false
	}
	code := items[i].Code
	if p.selected[code] {
		delete(p.selected, code)
	} else {
		p.selected[code] = true
	}
	return true
}

// ToggleCode flips the selection of the candidate with code
func (p *Picker) ToggleCode(code string) bool {
	for _, m := range p.matches {
		if m.Code != code {
			continue
		}
		if p.selected[code] {
			delete(p.selected, code)
		} else {
			p.selected[code] = true
		}
		return true
	}
	return false
}

// IsSelected reports whether code is selected
func (p *Picker) IsSelected(code string) bool {
	return p.selected[code]
}

// Selected returns the selected candidates in result order
func (p *Picker) Selected() []model.TerminologyMatch {
	out := make([]model.TerminologyMatch, 0, len(p.selected))
	seen := make(map[string]bool, len(p.selected))
	for _, m := range p.matches {
		if p.selected[m.Code] && !seen[m.Code] {
			seen[m.Code] = true
			out = append(out, m)
		}
	}
	return out
}

func (p *Picker) bounds() (int, int) {
	from := p.page * p.pageSize
	if from > len(p.matches) {
		from = len(p.matches)
	}
	to := from + p.pageSize
	if to > len(p.matches) {
		to = len(p.matches)
	}
	return from, to
}
