package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/render"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
)

var (
	askAuto bool
	askFrom int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Turn a clinical question into SQL",
	Long: `Ask sends a question for term extraction, lets you confirm each
highlighted term against the terminology, then generates SQL.

Without a question argument it is read from standard input.

Review commands:
  c N        confirm term N (opens the candidate list)
  e          toggle edit mode
  d N        delete term N (edit mode)
  a TEXT     highlight TEXT as a new term (edit mode)
  g          generate SQL (all terms confirmed, signed in)
  n          start a new question
  q          quit

Result commands:
  s SQL      replace the SQL
  k          check the SQL against the database
  b          back to the confirmed terms
  n, q       as above

Example:
  cortex ask "Patients diagnosed in the lower inner quadrant of breast that went under lumpectomy"
  cortex ask --auto "Female patients diagnosed with a paget disease"
  cortex ask --from 12`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askAuto, "auto", false, "confirm every term with its best match and generate without prompting")
	askCmd.Flags().IntVar(&askFrom, "from", 0, "start from the question of a history entry")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.newFlow()
	defer sess.Wait()

	r := &asker{
		sess:     sess,
		terms:    a.searcher,
		view:     a.view(),
		tr:       a.state.Translator(),
		in:       bufio.NewScanner(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
		pageSize: a.cfg.Terminology.PageSize,
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if askFrom > 0 {
		if err := a.requireAuth(); err != nil {
			return err
		}
		detail, err := a.client.Query(cmd.Context(), askFrom)
		if err != nil {
			return err
		}
		question = detail.Question
	}
	if question == "" {
		if question, err = prompt(r.out, r.in, r.tr.T("input.placeholder")+" "); err != nil {
			return err
		}
	}

	if askAuto {
		return r.auto(cmd.Context(), question)
	}
	return r.interactive(cmd.Context(), question)
}

// termSearcher finds terminology candidates
type termSearcher interface {
	Search(ctx context.Context, term string) ([]model.TerminologyMatch, error)
}

var errQuit = errors.New("quit")

// asker runs one query session on a line-oriented terminal
type asker struct {
	sess     *flow.Session
	terms    termSearcher
	view     *render.Terminal
	tr       *i18n.Translator
	in       *bufio.Scanner
	out      io.Writer
	pageSize int
}

func (r *asker) submit(ctx context.Context, question string) error {
	if err := r.sess.SetText(question); err != nil {
		return err
	}
	fmt.Fprintln(r.out, r.tr.T("input.extracting_terms"))
	return r.sess.Submit(ctx)
}

// auto confirms every fragment with its best match and generates
func (r *asker) auto(ctx context.Context, question string) error {
	if err := r.submit(ctx, question); err != nil {
		return err
	}

	for _, f := range r.sess.Fragments() {
		matches, err := r.terms.Search(ctx, f.Text)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("%s: %q", r.tr.T("term_validation.none"), f.Text)
		}
		if err := r.sess.Confirm(f.ID, matches[:1]); err != nil {
			return err
		}
	}
	fmt.Fprintln(r.out, r.view.Query(r.sess.Segments()))

	if r.sess.State() != flow.FragmentsConfirmed {
		return errors.New(r.tr.T("input.no_terms"))
	}
	fmt.Fprintln(r.out, r.tr.T("input.executing_query"))
	if err := r.sess.Generate(ctx); err != nil {
		return r.explain(err)
	}
	fmt.Fprint(r.out, r.view.Result(r.sess.Snapshot()))
	return nil
}

func (r *asker) interactive(ctx context.Context, question string) error {
	if err := r.submit(ctx, question); err != nil {
		return r.explain(err)
	}

	for {
		snap := r.sess.Snapshot()
		r.show(snap)

		line, err := prompt(r.out, r.in, "> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		err = r.dispatch(ctx, snap, fields, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.out, r.explain(err))
		}
	}
}

func (r *asker) show(snap flow.Snapshot) {
	switch snap.State {
	case flow.ResultReady:
		fmt.Fprint(r.out, r.view.Result(snap))
		fmt.Fprintln(r.out, "[s SQL] edit · [k] check · [b] back · [n] new · [q] quit")
	case flow.FragmentsPending, flow.FragmentsConfirmed:
		fmt.Fprintln(r.out, r.view.Query(snap.Segments))
		if status := r.view.Status(snap); status != "" {
			fmt.Fprintln(r.out, status)
		}
		hint := "[c N] confirm · [e] edit mode · [n] new · [q] quit"
		if snap.EditMode {
			hint = "[c N] confirm · [d N] delete · [a TEXT] add · [e] done · [n] new · [q] quit"
		}
		if snap.CanGenerate() {
			hint = "[g] " + r.tr.T("sql.generate") + " · " + hint
		}
		fmt.Fprintln(r.out, hint)
	}
}

func (r *asker) dispatch(ctx context.Context, snap flow.Snapshot, fields []string, line string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch fields[0] {
	case "q", "quit":
		return errQuit
	case "n", "new":
		question, err := prompt(r.out, r.in, r.tr.T("input.placeholder")+" ")
		if err != nil {
			return err
		}
		r.sess.NewQuery()
		return r.submit(ctx, question)
	}

	if snap.State == flow.ResultReady {
		switch fields[0] {
		case "s", "sql":
			return r.sess.EditSQL(rest)
		case "k", "check":
			fmt.Fprintln(r.out, r.tr.T("general.loading"))
			return r.sess.CheckSQL(ctx)
		case "b", "back":
			return r.sess.EditQuery()
		}
		return fmt.Errorf("unknown command %q", fields[0])
	}

	switch fields[0] {
	case "c", "confirm":
		f, err := fragmentArg(snap, fields)
		if err != nil {
			return err
		}
		return r.pick(ctx, f)
	case "e", "edit":
		return r.sess.SetEditMode(!snap.EditMode)
	case "d", "delete":
		f, err := fragmentArg(snap, fields)
		if err != nil {
			return err
		}
		if !snap.EditMode {
			return flow.ErrNotEditing
		}
		_, err = r.sess.Click(f.ID)
		return err
	case "a", "add":
		start, end, ok := runeIndex(snap.Text, rest)
		if !ok {
			return fmt.Errorf("%q is not part of the question", rest)
		}
		_, err := r.sess.Select(start, end)
		return err
	case "g", "generate":
		fmt.Fprintln(r.out, r.tr.T("input.executing_query"))
		return r.sess.Generate(ctx)
	}
	return fmt.Errorf("unknown command %q", fields[0])
}

// pick shows the candidate pages for f until the user confirms or cancels
func (r *asker) pick(ctx context.Context, f model.Fragment) error {
	fmt.Fprintln(r.out, r.tr.T("term_validation.loading"))
	matches, err := r.terms.Search(ctx, f.Text)
	if err != nil {
		return fmt.Errorf("%s: %w", r.tr.T("term_validation.error"), err)
	}

	p := terminology.NewPicker(matches, r.pageSize)
	for _, m := range f.Matches {
		p.ToggleCode(m.Code)
	}

	for {
		fmt.Fprint(r.out, r.view.Picker(f.Text, p))
		line, err := prompt(r.out, r.in, "[N..] toggle · [n] next · [p] prev · [ok] confirm · [x] cancel > ")
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "n":
			p.Next()
		case "p":
			p.Prev()
		case "ok":
			return r.sess.Confirm(f.ID, p.Selected())
		case "x":
			return nil
		default:
			for _, field := range fields {
				i, err := strconv.Atoi(field)
				if err != nil || !p.Toggle(i-1) {
					fmt.Fprintf(r.out, "ignored %q\n", field)
				}
			}
		}
	}
}

// explain rewords errors the user can act on
func (r *asker) explain(err error) error {
	switch {
	case errors.Is(err, flow.ErrAuthRequired):
		return fmt.Errorf("%s (cortex login)", r.tr.T("input.login_required"))
	case errors.Is(err, flow.ErrEmptyQuery):
		return err
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", r.tr.T("general.error"), api.DetailOf(err))
	}
	return err
}

// fragmentArg resolves the 1-based fragment number in fields[1]
func fragmentArg(snap flow.Snapshot, fields []string) (model.Fragment, error) {
	if len(fields) < 2 {
		return model.Fragment{}, errors.New("missing term number")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(snap.Fragments) {
		return model.Fragment{}, fmt.Errorf("no term %q", fields[1])
	}
	return snap.Fragments[n-1], nil
}

// runeIndex finds the first occurrence of sub in text as a rune range
func runeIndex(text, sub string) (start, end int, ok bool) {
	if sub == "" {
		return 0, 0, false
	}
	i := strings.Index(text, sub)
	if i < 0 {
		return 0, 0, false
	}
	start = len([]rune(text[:i]))
	return start, start + len([]rune(sub)), true
}
