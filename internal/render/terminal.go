// Package render draws a query session for the terminal (lipgloss) and the
// browser (an x/net/html node tree).
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

// Chip markers used in terminal output
const (
	MarkConfirmed = "✓"
	MarkPending   = "⚠"
)

// Terminal renders with the styles of one theme
type Terminal struct {
	tr *i18n.Translator

	text      lipgloss.Style
	muted     lipgloss.Style
	title     lipgloss.Style
	confirmed lipgloss.Style
	pending   lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	failure   lipgloss.Style
	code      lipgloss.Style
}

// NewTerminal builds the styles for th
func NewTerminal(th theme.Theme, tr *i18n.Translator) *Terminal {
	p := th.Palette()
	return &Terminal{
		tr:        tr,
		text:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text)),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextMuted)),
		title:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Primary)).Bold(true),
		confirmed: lipgloss.NewStyle().Foreground(lipgloss.Color(p.ChipText)).Background(lipgloss.Color(p.Chip)).Underline(true),
		pending:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning)).Background(lipgloss.Color(p.Chip)).Bold(true),
		success:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success)).Bold(true),
		warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning)).Bold(true),
		failure:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)).Bold(true),
		code: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Secondary)).
			Padding(0, 1),
	}
}

// Query draws the reconciled query. Fragments are numbered in document
// order so that commands can refer to them.
func (t *Terminal) Query(segments []span.Segment) string {
	var b strings.Builder
	n := 0
	for _, seg := range segments {
		if seg.Kind == span.KindPlain {
			b.WriteString(t.text.Render(seg.Text))
			continue
		}
		n++
		if seg.Fragment != nil && seg.Fragment.Confirmed {
			b.WriteString(t.confirmed.Render(fmt.Sprintf("[%d %s %s]", n, MarkConfirmed, seg.Text)))
		} else {
			b.WriteString(t.pending.Render(fmt.Sprintf("[%d %s %s]", n, MarkPending, seg.Text)))
		}
	}
	return b.String()
}

// Status summarises the session state in one line
func (t *Terminal) Status(snap flow.Snapshot) string {
	switch {
	case snap.Busy == flow.OpExtracting:
		return t.muted.Render(t.tr.T("input.extracting_terms"))
	case snap.Busy == flow.OpGenerating:
		return t.muted.Render(t.tr.T("input.executing_query"))
	case snap.Busy == flow.OpChecking:
		return t.muted.Render(t.tr.T("general.loading"))
	case snap.State == flow.FragmentsPending && len(snap.Fragments) == 0:
		return t.warning.Render(t.tr.T("input.no_terms"))
	case snap.State == flow.FragmentsPending:
		return t.warning.Render(t.tr.T("input.confirm_terms"))
	}
	return ""
}

// Result draws the generated SQL and, if present, the last check
func (t *Terminal) Result(snap flow.Snapshot) string {
	if snap.Result == nil {
		return ""
	}
	r := snap.Result

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", t.title.Render(t.tr.T("sql.original_query")), t.text.Render(snap.Text))

	if terms := confirmedTerms(snap.Fragments); len(terms) > 0 {
		fmt.Fprintf(&b, "%s\n", t.title.Render(t.tr.T("sql.validated_terms")))
		for _, line := range terms {
			fmt.Fprintf(&b, "  %s\n", t.text.Render(line))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s  %s\n", t.title.Render(t.tr.T("sql.generated")), t.muted.Render(t.tr.Tf("sql.attempts", r.AttemptsCount)))
	b.WriteString(t.code.Render(snap.SQL))
	b.WriteString("\n")

	if r.IsExecutable {
		fmt.Fprintf(&b, "%s\n", t.success.Render(MarkConfirmed+" "+t.tr.T("sql.executable")))
	} else {
		fmt.Fprintf(&b, "%s\n", t.failure.Render("✗ "+t.tr.T("sql.not_executable")))
	}
	if r.ErrorMessage != "" {
		fmt.Fprintf(&b, "%s: %s\n", t.muted.Render(t.tr.T("sql.error_details")), r.ErrorMessage)
	}
	if ex := r.SimilarExample; ex != nil {
		fmt.Fprintf(&b, "\n%s\n  %s\n", t.muted.Render(t.tr.Tf("sql.similar_example", ex.Score*100)), t.text.Render(ex.Question))
	}

	if v := snap.Validation; v != nil {
		b.WriteString("\n")
		b.WriteString(t.Validation(*v))
	}
	return b.String()
}

// Validation draws a SQL check outcome
func (t *Terminal) Validation(v model.Validation) string {
	var b strings.Builder
	switch v.Outcome() {
	case model.OutcomeExecutable:
		b.WriteString(t.success.Render(MarkConfirmed + " " + t.tr.T("sql.executable")))
	case model.OutcomeNotExecutable:
		b.WriteString(t.warning.Render(MarkPending + " " + t.tr.T("sql.not_executable")))
	default:
		b.WriteString(t.failure.Render("✗ " + t.tr.T("sql.invalid")))
	}
	b.WriteString("\n")

	if d := v.Detail(); d != "" {
		fmt.Fprintf(&b, "%s: %s\n", t.muted.Render(t.tr.T("sql.error_details")), d)
	}
	if v.ExecutionTime != nil {
		fmt.Fprintf(&b, "%s\n", t.muted.Render(t.tr.Tf("sql.execution_time", *v.ExecutionTime)))
	}
	if v.RowCount != nil {
		fmt.Fprintf(&b, "%s\n", t.muted.Render(t.tr.Tf("sql.row_count", *v.RowCount)))
	}
	return b.String()
}

// Picker draws the current page of terminology candidates
func (t *Terminal) Picker(fragment string, p *terminology.Picker) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", t.title.Render(t.tr.T("term_validation.title")), fragment)

	items := p.Items()
	if len(items) == 0 {
		fmt.Fprintf(&b, "%s\n", t.muted.Render(t.tr.T("term_validation.none")))
		return b.String()
	}

	for i, m := range items {
		box := "[ ]"
		if p.IsSelected(m.Code) {
			box = t.success.Render("[x]")
		}
		fmt.Fprintf(&b, "%s %2d. %s %s %s\n",
			box, i+1,
			t.text.Render(m.Label),
			t.muted.Render("("+m.Code+", "+m.Category+")"),
			t.muted.Render(fmt.Sprintf("%.0f%%", m.Similarity*100)))
	}
	fmt.Fprintf(&b, "%s\n", t.muted.Render(p.RangeText(t.tr.T("term_validation.of"))))
	return b.String()
}

// History draws the history list
func (t *Terminal) History(items []model.QuerySummary) string {
	if len(items) == 0 {
		return t.muted.Render(t.tr.T("history.no_queries")) + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t.title.Render(t.tr.T("history.title")))
	for _, it := range items {
		mark := t.success.Render(MarkConfirmed)
		if !it.IsExecutable {
			mark = t.failure.Render("✗")
		}
		title := it.Title
		if title == "" {
			title = it.Question
		}
		fmt.Fprintf(&b, "%s %4d  %s  %s\n", mark, it.ID, t.muted.Render(it.Timestamp.Local().Format("2006-01-02 15:04")), title)
	}
	return b.String()
}

// QueryDetail draws one history record
func (t *Terminal) QueryDetail(d *model.QueryDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", t.title.Render(t.tr.T("sql.original_query")), d.Question)
	if len(d.MedicalTerms) > 0 {
		fmt.Fprintf(&b, "%s\n  %s\n\n", t.title.Render(t.tr.T("sql.validated_terms")), strings.Join(d.MedicalTerms, ", "))
	}
	if d.GeneratedSQL != "" {
		fmt.Fprintf(&b, "%s  %s\n%s\n", t.title.Render(t.tr.T("sql.generated")),
			t.muted.Render(t.tr.Tf("sql.attempts", d.AttemptsCount)), t.code.Render(d.GeneratedSQL))
	}
	if d.IsExecutable {
		fmt.Fprintf(&b, "%s\n", t.success.Render(MarkConfirmed+" "+t.tr.T("sql.executable")))
	} else {
		fmt.Fprintf(&b, "%s\n", t.failure.Render("✗ "+t.tr.T("sql.not_executable")))
	}
	if d.ErrorMessage != "" {
		fmt.Fprintf(&b, "%s: %s\n", t.muted.Render(t.tr.T("sql.error_details")), d.ErrorMessage)
	}
	if d.ProcessingTime != nil {
		fmt.Fprintf(&b, "%s\n", t.muted.Render(t.tr.Tf("sql.execution_time", *d.ProcessingTime)))
	}
	return b.String()
}

// confirmedTerms lists "fragment → label (code)" for confirmed fragments
func confirmedTerms(fragments []model.Fragment) []string {
	var out []string
	for _, f := range fragments {
		if !f.Confirmed {
			continue
		}
		for _, m := range f.Matches {
			out = append(out, fmt.Sprintf("%s → %s (%s)", f.Text, m.Label, m.Code))
		}
	}
	return out
}
