// Package flow drives one query from free text to validated SQL:
// extraction, fragment confirmation, generation and checking.
package flow

import "errors"

// State is the phase of a query
type State string

const (
	Drafting           State = "drafting"
	FragmentsPending   State = "fragments-pending"
	FragmentsConfirmed State = "fragments-confirmed"
	Generating         State = "generating"
	ResultReady        State = "result-ready"
)

// Operation names the backend call a session is waiting on
type Operation string

const (
	OpNone       Operation = ""
	OpExtracting Operation = "extracting"
	OpGenerating Operation = "generating"
	OpChecking   Operation = "checking"
)

// ClickResult tells the caller what a click on a fragment did
type ClickResult string

const (
	ClickDeleted ClickResult = "deleted" // Edit mode removed the fragment
	ClickConfirm ClickResult = "confirm" // The caller should open term confirmation
)

var (
	// ErrEmptyQuery is returned when submitting blank text
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrEmptySQL is returned when checking blank SQL
	ErrEmptySQL = errors.New("sql is empty")
	// ErrReadOnly is returned when editing text that fragments already index
	ErrReadOnly = errors.New("query text is read-only once fragments exist")
	// ErrBusy is returned while another backend call is outstanding
	ErrBusy = errors.New("another request is in progress")
	// ErrAuthRequired is returned before calls that need a signed-in user
	ErrAuthRequired = errors.New("sign in required")
	// ErrInvalidTransition is returned when an operation does not apply to the current state
	ErrInvalidTransition = errors.New("operation not allowed in the current state")
	// ErrDiscarded is returned by a call whose result arrived after NewQuery
	ErrDiscarded = errors.New("query was reset while the request was in progress")
	// ErrNotEditing is returned for selections outside edit mode
	ErrNotEditing = errors.New("edit mode is off")
)
