package flow

import (
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
)

// Snapshot is an immutable copy of a session for renderers and the JSON API
type Snapshot struct {
	State        State             `json:"state"`
	Busy         Operation         `json:"busy,omitempty"`
	Text         string            `json:"text"`
	Fragments    []model.Fragment  `json:"fragments"`
	Segments     []span.Segment    `json:"segments"`
	AllConfirmed bool              `json:"all_confirmed"`
	Unconfirmed  int               `json:"unconfirmed"`
	EditMode     bool              `json:"edit_mode"`
	Result       *model.SQLResult  `json:"result,omitempty"`
	SQL          string            `json:"sql,omitempty"`
	SQLEdited    bool              `json:"sql_edited"`
	Validation   *model.Validation `json:"validation,omitempty"`
}

// CanGenerate reports whether the generate action is available
func (s Snapshot) CanGenerate() bool {
	return s.Busy == OpNone && s.State == FragmentsConfirmed
}

// Snapshot copies the current session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fragments := s.fragments.Fragments()
	snap := Snapshot{
		State:        s.state,
		Busy:         s.busy,
		Text:         s.text,
		Fragments:    fragments,
		Segments:     span.Reconcile(s.text, fragments),
		AllConfirmed: s.fragments.AllConfirmed(),
		Unconfirmed:  s.fragments.Unconfirmed(),
		EditMode:     s.editMode,
		SQL:          s.sql,
	}

	if s.result != nil {
		r := *s.result
		if r.SimilarExample != nil {
			ex := *r.SimilarExample
			r.SimilarExample = &ex
		}
		snap.Result = &r
		snap.SQLEdited = s.sql != r.SQL
	}
	if s.validation != nil {
		v := *s.validation
		snap.Validation = &v
	}
	return snap
}
