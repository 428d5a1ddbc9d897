package render

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

// Chip classes and icon names shared with the stylesheet
const (
	ClassChipConfirmed = "chip chip-confirmed"
	ClassChipPending   = "chip chip-pending"
	IconConfirmed      = "check_circle"
	IconPending        = "warning"
)

// PageView is everything the web page shows
type PageView struct {
	Snapshot   flow.Snapshot
	Translator *i18n.Translator
	Theme      theme.Theme
	User       *model.User
	Examples   []string

	// Term confirmation dialog, shown when both are set
	PickerFragment *model.Fragment
	Picker         *terminology.Picker

	History []model.QuerySummary
	Notice  string
	Error   string
}

// QueryNode renders the reconciled query as text with chip buttons.
// Chips submit the enclosing form with the fragment id.
func QueryNode(segments []span.Segment) *html.Node {
	div := el(atom.Div, attrs("class", "query"))
	for _, seg := range segments {
		if seg.Kind == span.KindPlain {
			div.AppendChild(text(seg.Text))
			continue
		}
		div.AppendChild(chip(seg))
	}
	return div
}

func chip(seg span.Segment) *html.Node {
	class, icon := ClassChipPending, IconPending
	id := ""
	if seg.Fragment != nil {
		id = seg.Fragment.ID
		if seg.Fragment.Confirmed {
			class, icon = ClassChipConfirmed, IconConfirmed
		}
	}

	return el(atom.Button,
		attrs(
			"type", "submit",
			"name", "fragment",
			"value", id,
			"class", class,
			"data-fragment-id", id,
			"data-start", strconv.Itoa(seg.Start),
			"data-end", strconv.Itoa(seg.End),
		),
		el(atom.Span, attrs("class", "icon material-icons", "aria-hidden", "true"), text(icon)),
		text(seg.Text),
	)
}

// Page renders the full HTML document
func Page(v PageView) ([]byte, error) {
	tr := v.Translator
	snap := v.Snapshot

	head := el(atom.Head, nil,
		el(atom.Meta, attrs("charset", "utf-8")),
		el(atom.Meta, attrs("name", "viewport", "content", "width=device-width, initial-scale=1")),
		el(atom.Title, nil, text("CORTEX")),
		el(atom.Style, nil, text(v.Theme.CSSVariables()+stylesheet)),
	)

	main := el(atom.Main, nil)
	if v.Notice != "" {
		main.AppendChild(el(atom.P, attrs("class", "notice"), text(v.Notice)))
	}
	if v.Error != "" {
		main.AppendChild(el(atom.P, attrs("class", "error", "role", "alert"), text(v.Error)))
	}

	switch snap.State {
	case flow.Drafting:
		main.AppendChild(draftSection(v))
	case flow.FragmentsPending, flow.FragmentsConfirmed:
		main.AppendChild(reviewSection(v))
	case flow.Generating:
		main.AppendChild(el(atom.P, attrs("class", "busy"), text(tr.T("input.executing_query"))))
	case flow.ResultReady:
		main.AppendChild(resultSection(v))
	}

	if v.Picker != nil && v.PickerFragment != nil {
		main.AppendChild(pickerSection(v))
	}
	if v.History != nil {
		main.AppendChild(historySection(v))
	}

	body := el(atom.Body, attrs("class", "theme-"+string(v.Theme)),
		header(v),
		main,
		el(atom.Footer, nil, el(atom.P, nil, text(tr.T("footer.disclaimer")))),
	)

	root := el(atom.Html, attrs("lang", string(tr.Language())), head, body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func header(v PageView) *html.Node {
	tr := v.Translator
	h := el(atom.Header, nil,
		el(atom.H1, nil, text("CORTEX")),
		el(atom.P, attrs("class", "tagline"), text(tr.T("logo.description"))),
	)

	other := i18n.English
	if tr.Language() == i18n.English {
		other = i18n.Spanish
	}
	h.AppendChild(form("/ui/language", hidden("language", string(other)), button(string(other), "")))

	themeLabel := tr.T("theme.dark")
	if v.Theme == theme.Dark {
		themeLabel = tr.T("theme.light")
	}
	h.AppendChild(form("/ui/theme", button(themeLabel, "")))

	if v.User != nil {
		h.AppendChild(el(atom.Span, attrs("class", "user"), text(v.User.Email)))
		h.AppendChild(form("/ui/history", button(tr.T("history.view_history"), "")))
		h.AppendChild(form("/ui/logout", button(tr.T("header.logout"), "")))
	} else {
		h.AppendChild(form("/ui/login",
			input("email", "email", tr.T("login.email")),
			input("password", "password", tr.T("login.password")),
			button(tr.T("header.login"), "primary"),
		))
	}
	return h
}

func draftSection(v PageView) *html.Node {
	tr := v.Translator
	section := el(atom.Section, attrs("class", "draft"))

	area := el(atom.Textarea, attrs("name", "text", "placeholder", tr.T("input.placeholder"), "rows", "4"))
	area.AppendChild(text(v.Snapshot.Text))

	var status *html.Node
	if v.Snapshot.Busy == flow.OpExtracting {
		status = el(atom.P, attrs("class", "busy"), text(tr.T("input.extracting_terms")))
	}
	section.AppendChild(form("/ui/submit", area, button(tr.T("input.send"), "primary"), status))

	if len(v.Examples) > 0 {
		list := el(atom.Ul, attrs("class", "examples"))
		for _, ex := range v.Examples {
			list.AppendChild(el(atom.Li, nil,
				form("/ui/draft", hidden("text", ex), button(ex, "link"))))
		}
		section.AppendChild(el(atom.H2, nil, text(tr.T("examples.title"))))
		section.AppendChild(list)
	}
	return section
}

func reviewSection(v PageView) *html.Node {
	tr := v.Translator
	snap := v.Snapshot
	section := el(atom.Section, attrs("class", "review"))

	section.AppendChild(form("/ui/click", QueryNode(snap.Segments)))

	switch {
	case len(snap.Fragments) == 0:
		section.AppendChild(el(atom.P, attrs("class", "warning"), text(tr.T("input.no_terms"))))
	case !snap.AllConfirmed:
		section.AppendChild(el(atom.P, attrs("class", "warning"), text(tr.T("input.confirm_terms"))))
	}

	editLabel := tr.T("input.edit_terms")
	if snap.EditMode {
		editLabel = tr.T("input.edit_terms_done")
	}
	actions := el(atom.Div, attrs("class", "actions"),
		form("/ui/edit-mode", hidden("on", strconv.FormatBool(!snap.EditMode)), button(editLabel, "")),
		form("/ui/reset", button(tr.T("input.reset"), "")),
	)
	if snap.EditMode {
		actions.AppendChild(form("/ui/select",
			input("number", "start", "start"),
			input("number", "end", "end"),
			button(tr.T("general.confirm"), "")))
	}
	if snap.CanGenerate() {
		actions.AppendChild(form("/ui/generate", button(tr.T("sql.generate"), "primary")))
		if v.User == nil {
			actions.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.T("input.login_required"))))
		}
	}
	section.AppendChild(actions)
	return section
}

func resultSection(v PageView) *html.Node {
	tr := v.Translator
	snap := v.Snapshot
	r := snap.Result
	section := el(atom.Section, attrs("class", "result"))

	section.AppendChild(el(atom.H2, nil, text(tr.T("sql.original_query"))))
	section.AppendChild(el(atom.P, nil, text(snap.Text)))

	if terms := confirmedTerms(snap.Fragments); len(terms) > 0 {
		list := el(atom.Ul, attrs("class", "terms"))
		for _, t := range terms {
			list.AppendChild(el(atom.Li, nil, text(t)))
		}
		section.AppendChild(el(atom.H2, nil, text(tr.T("sql.validated_terms"))))
		section.AppendChild(list)
	}

	section.AppendChild(el(atom.H2, nil, text(tr.T("sql.generated"))))
	section.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.Tf("sql.attempts", r.AttemptsCount))))

	area := el(atom.Textarea, attrs("name", "sql", "class", "sql", "rows", "8", "spellcheck", "false"))
	area.AppendChild(text(snap.SQL))
	section.AppendChild(form("/ui/sql", area, button(tr.T("sql.check"), "primary")))

	status, class := tr.T("sql.not_executable"), "status status-error"
	if r.IsExecutable {
		status, class = tr.T("sql.executable"), "status status-success"
	}
	section.AppendChild(el(atom.P, attrs("class", class), text(status)))
	if r.ErrorMessage != "" {
		section.AppendChild(el(atom.P, attrs("class", "error"), text(tr.T("sql.error_details")+": "+r.ErrorMessage)))
	}

	if ex := r.SimilarExample; ex != nil {
		section.AppendChild(el(atom.Details, attrs("class", "similar"),
			el(atom.Summary, nil, text(tr.Tf("sql.similar_example", ex.Score*100))),
			el(atom.P, nil, text(ex.Question)),
			el(atom.Pre, nil, text(ex.SQL)),
		))
	}

	if val := snap.Validation; val != nil {
		section.AppendChild(validationNode(tr, *val))
	}

	section.AppendChild(el(atom.Div, attrs("class", "actions"),
		form("/ui/edit-query", button(tr.T("sql.edit_query"), "")),
		form("/ui/reset", button(tr.T("sql.new_query"), "")),
	))
	return section
}

func validationNode(tr *i18n.Translator, v model.Validation) *html.Node {
	div := el(atom.Div, attrs("class", "validation validation-"+string(v.Outcome())))
	switch v.Outcome() {
	case model.OutcomeExecutable:
		div.AppendChild(el(atom.P, attrs("class", "status status-success"), text(tr.T("sql.executable"))))
	case model.OutcomeNotExecutable:
		div.AppendChild(el(atom.P, attrs("class", "status status-warning"), text(tr.T("sql.not_executable"))))
	default:
		div.AppendChild(el(atom.P, attrs("class", "status status-error"), text(tr.T("sql.invalid"))))
	}
	if d := v.Detail(); d != "" {
		div.AppendChild(el(atom.Pre, attrs("class", "error"), text(d)))
	}
	if v.ExecutionTime != nil {
		div.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.Tf("sql.execution_time", *v.ExecutionTime))))
	}
	if v.RowCount != nil {
		div.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.Tf("sql.row_count", *v.RowCount))))
	}
	return div
}

func pickerSection(v PageView) *html.Node {
	tr := v.Translator
	p := v.Picker
	frag := v.PickerFragment

	dialog := el(atom.Section, attrs("role", "dialog", "class", "picker", "data-fragment-id", frag.ID),
		el(atom.H2, nil, text(tr.T("term_validation.title")+": "+frag.Text)),
	)

	items := p.Items()
	if len(items) == 0 {
		dialog.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.T("term_validation.none"))))
	}

	list := el(atom.Ul, nil)
	for _, m := range items {
		box := attrs("type", "checkbox", "name", "code", "value", m.Code)
		if p.IsSelected(m.Code) {
			box = append(box, html.Attribute{Key: "checked"})
		}
		list.AppendChild(el(atom.Li, nil,
			el(atom.Label, nil,
				el(atom.Input, box),
				el(atom.Strong, nil, text(m.Label)),
				text(fmt.Sprintf(" (%s, %s) %.0f%%", m.Code, m.Category, m.Similarity*100)),
			)))
	}

	// Paging posts the checkboxes too, so selections survive page changes
	nav := el(atom.Div, attrs("class", "pager"),
		el(atom.Span, nil, text(p.RangeText(tr.T("term_validation.of")))))
	if p.Page() > 0 {
		nav.AppendChild(el(atom.Button, attrs("type", "submit", "name", "move", "value", "prev"), text(tr.T("term_validation.previous"))))
	}
	if p.Page()+1 < p.Pages() {
		nav.AppendChild(el(atom.Button, attrs("type", "submit", "name", "move", "value", "next"), text(tr.T("term_validation.next"))))
	}

	dialog.AppendChild(form("/ui/confirm",
		hidden("fragment", frag.ID),
		list,
		button(tr.T("term_validation.confirm"), "primary"),
		nav,
	))
	dialog.AppendChild(link("/", tr.T("term_validation.cancel")))
	return dialog
}

func historySection(v PageView) *html.Node {
	tr := v.Translator
	aside := el(atom.Aside, attrs("class", "history"), el(atom.H2, nil, text(tr.T("history.title"))))

	if len(v.History) == 0 {
		aside.AppendChild(el(atom.P, attrs("class", "muted"), text(tr.T("history.no_queries"))))
		return aside
	}

	list := el(atom.Ul, nil)
	for _, it := range v.History {
		title := it.Title
		if title == "" {
			title = it.Question
		}
		list.AppendChild(el(atom.Li, attrs("data-query-id", strconv.Itoa(it.ID)),
			form("/ui/draft", hidden("text", it.Question), button(title, "link")),
			el(atom.Small, nil, text(it.Timestamp.Local().Format("2006-01-02 15:04"))),
			form("/ui/history/delete", hidden("id", strconv.Itoa(it.ID)), button("×", "danger")),
		))
	}
	aside.AppendChild(list)
	return aside
}

func el(tag atom.Atom, attributes []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String(), Attr: attributes}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func form(action string, children ...*html.Node) *html.Node {
	return el(atom.Form, attrs("method", "post", "action", action), children...)
}

func hidden(name, value string) *html.Node {
	return el(atom.Input, attrs("type", "hidden", "name", name, "value", value))
}

func input(kind, name, placeholder string) *html.Node {
	return el(atom.Input, attrs("type", kind, "name", name, "placeholder", placeholder, "required", ""))
}

func button(label, class string) *html.Node {
	a := attrs("type", "submit")
	if class != "" {
		a = append(a, html.Attribute{Key: "class", Val: class})
	}
	return el(atom.Button, a, text(label))
}

func link(href, label string) *html.Node {
	return el(atom.A, attrs("href", href), text(label))
}

const stylesheet = `
body{font-family:system-ui,sans-serif;background:var(--color-background);color:var(--color-text);margin:0 auto;max-width:960px;padding:1rem}
header{display:flex;gap:.75rem;align-items:center;flex-wrap:wrap}
h1{color:var(--color-primary);margin:0}
.tagline,.muted{color:var(--color-text-muted)}
.query{line-height:2.2;font-size:1.1rem}
.chip{border:0;border-radius:999px;padding:.1rem .6rem;margin:0 .1rem;background:var(--color-chip);color:var(--color-chip-text);cursor:pointer;font:inherit}
.chip .icon{font-size:.9rem;margin-right:.25rem}
.chip-confirmed .icon{color:var(--color-success)}
.chip-pending .icon,.warning{color:var(--color-warning)}
.error,.status-error{color:var(--color-error)}
.status-success{color:var(--color-success)}
.status-warning{color:var(--color-warning)}
.primary{background:var(--color-primary);color:var(--color-background)}
textarea{width:100%;font:inherit}
textarea.sql{font-family:ui-monospace,monospace}
.actions{display:flex;gap:.5rem;flex-wrap:wrap;margin-top:1rem}
.picker{position:static;border:1px solid var(--color-secondary)}
`
