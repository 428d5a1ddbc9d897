package model

// Fragment is a highlighted span of the original query text.
// Start and End are rune offsets (half-open) into the unedited query.
type Fragment struct {
	ID        string             `json:"id"`                // Stable identifier (uuid)
	Text      string             `json:"text"`              // Surface text of the span
	Start     int                `json:"start"`             // First rune (inclusive)
	End       int                `json:"end"`               // Last rune (exclusive)
	Confirmed bool               `json:"confirmed"`         // Whether a terminology mapping was attached
	Matches   []TerminologyMatch `json:"matches,omitempty"` // Attached terminology matches
}

// Len returns the span length in runes
func (f Fragment) Len() int {
	return f.End - f.Start
}

// HasOffsets reports whether the fragment carries a usable range
func (f Fragment) HasOffsets() bool {
	return f.Start >= 0 && f.End > f.Start
}

// Overlaps reports whether two half-open ranges intersect
func (f Fragment) Overlaps(other Fragment) bool {
	return f.Start < other.End && other.Start < f.End
}

// TerminologyMatch is a candidate concept returned by the similarity service
type TerminologyMatch struct {
	Term       string  `json:"term"`           // Synonym that matched
	Code       string  `json:"concept_id"`     // Terminology code (e.g., SNOMED concept id)
	Label      string  `json:"preferred_term"` // Preferred display label
	Category   string  `json:"semantic_tag"`   // Semantic category
	Similarity float64 `json:"similarity"`     // Similarity score (0-1)
}

// Entity is a span detected by the extraction service
type Entity struct {
	Word        string  `json:"word"`
	EntityGroup string  `json:"entity_group,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// TermPair is the flattened (fragment text, code) pair sent for SQL generation
type TermPair struct {
	Term string `json:"term"`
	Code string `json:"concept_id"`
}
