// Package shell is the interactive command loop driving a hosts session.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/atinyakov/HostsBox/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"
	"github.com/samber/lo"
)

const prompt = "hostsbox> "

const usage = `Available commands:
  help                     show this help
  list                     list entries (* selected, [x] active)
  system | default         show the system hosts or the default entry
  show <entry>             open an entry
  preview                  show what would be written now
  new <name>               create an inactive entry
  edit-default             replace the default entry text
  save-default [apply]     save the default entry, optionally applying it
  edit <entry>             replace an entry's text and save it
  on <entry> | off <entry> activate or deactivate an entry
  rm <entry>               delete an entry
  select <entry...>        add entries to the selection
  unselect <entry...>      remove entries from the selection
  selected                 list the selection
  batch-on | batch-off     activate or deactivate the selection
  batch-rm                 delete the selection
  open                     reveal the hosts file
  exit                     quit
<entry> is an id, a unique id prefix or a name.`

// Controller is the session as driven by the shell.
type Controller interface {
	Entries() []models.Entry
	Selected() []string
	View() session.View
	Preview() string

	CreateEntry(ctx context.Context, name string) (models.Entry, error)
	ToggleEntryActive(ctx context.Context, id string, active bool) error
	SelectEntry(id string) error
	SetBuffer(content string) error
	SaveCurrentEntry(ctx context.Context) error
	DeleteEntry(ctx context.Context, id string) error

	SelectSystem()
	SelectDefault()
	EditDefault() error
	SaveDefault(ctx context.Context) error
	SaveDefaultAndApply(ctx context.Context) error

	Select(id string) error
	Unselect(id string)
	DeleteSelectedEntries(ctx context.Context, confirm func(msg string) bool) error
	ActivateSelectedEntries(ctx context.Context) error
	DeactivateSelectedEntries(ctx context.Context) error

	OpenHostsDir() error
}

type styles struct {
	ok, fail, title, dim lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		title: r.NewStyle().Bold(true).Underline(true),
		dim:   r.NewStyle().Faint(true),
	}
}

// Shell reads commands from in and writes results to out.
type Shell struct {
	c     Controller
	in    *bufio.Scanner
	out   io.Writer
	style styles
}

// New returns a Shell over c.
func New(c Controller, in io.Reader, out io.Writer) *Shell {
	return &Shell{c: c, in: bufio.NewScanner(in), out: out, style: newStyles(out)}
}

// Run loops until exit or end of input.
func (sh *Shell) Run(ctx context.Context) {
	for {
		fmt.Fprint(sh.out, prompt)
		if !sh.in.Scan() {
			fmt.Fprintln(sh.out)
			return
		}
		if quit := sh.Exec(ctx, sh.in.Text()); quit {
			return
		}
	}
}

// Exec runs one command line and reports whether the shell should stop.
func (sh *Shell) Exec(ctx context.Context, line string) (quit bool) {
	args, err := shlex.Split(line)
	if err != nil {
		sh.fail(err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(sh.out, usage)
	case "list":
		sh.list()
	case "system":
		sh.c.SelectSystem()
		sh.printView()
	case "default":
		sh.c.SelectDefault()
		sh.printView()
	case "show":
		sh.withEntry(args, "show <entry>", func(e models.Entry) error {
			if err := sh.c.SelectEntry(e.ID); err != nil {
				return err
			}
			sh.printView()
			return nil
		})
	case "preview":
		fmt.Fprintln(sh.out, sh.style.title.Render("Preview"))
		fmt.Fprint(sh.out, sh.c.Preview())
		fmt.Fprintln(sh.out)
	case "new":
		if len(args) != 1 {
			sh.usage("new <name>")
			return false
		}
		e, err := sh.c.CreateEntry(ctx, args[0])
		if err != nil {
			sh.fail(err)
			return false
		}
		sh.okf("created %s (%s)", e.Name, e.ID)
	case "edit-default":
		sh.editDefault()
	case "save-default":
		sh.saveDefault(ctx, args)
	case "edit":
		sh.withEntry(args, "edit <entry>", func(e models.Entry) error {
			if err := sh.c.SelectEntry(e.ID); err != nil {
				return err
			}
			content, ok := sh.readContent()
			if !ok {
				return nil
			}
			if err := sh.c.SetBuffer(content); err != nil {
				return err
			}
			if err := sh.c.SaveCurrentEntry(ctx); err != nil {
				return err
			}
			sh.okf("saved %s", e.Name)
			return nil
		})
	case "on", "off":
		active := cmd == "on"
		sh.withEntry(args, cmd+" <entry>", func(e models.Entry) error {
			if err := sh.c.ToggleEntryActive(ctx, e.ID, active); err != nil {
				return err
			}
			sh.okf("%s is %s", e.Name, lo.Ternary(active, "active", "inactive"))
			return nil
		})
	case "rm":
		sh.withEntry(args, "rm <entry>", func(e models.Entry) error {
			if err := sh.c.DeleteEntry(ctx, e.ID); err != nil {
				return err
			}
			sh.okf("deleted %s", e.Name)
			return nil
		})
	case "select", "unselect":
		sh.selectEntries(cmd == "select", args)
	case "selected":
		sh.selected()
	case "batch-on":
		sh.report(sh.c.ActivateSelectedEntries(ctx), "selection activated")
	case "batch-off":
		sh.report(sh.c.DeactivateSelectedEntries(ctx), "selection deactivated")
	case "batch-rm":
		sh.report(sh.c.DeleteSelectedEntries(ctx, sh.confirm), "selection deleted")
	case "open":
		sh.report(sh.c.OpenHostsDir(), "opened hosts directory")
	case "exit", "quit":
		fmt.Fprintln(sh.out, "Bye")
		return true
	default:
		fmt.Fprintln(sh.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return false
}

func (sh *Shell) okf(format string, args ...any) {
	fmt.Fprintln(sh.out, sh.style.ok.Render(fmt.Sprintf(format, args...)))
}

func (sh *Shell) usage(u string) {
	fmt.Fprintln(sh.out, "Usage: "+u)
}

func (sh *Shell) fail(err error) {
	msg := "error: " + err.Error()
	switch {
	case errors.Is(err, models.ErrElevationCancelled):
		msg = "cancelled: the hosts file was not changed"
	case errors.Is(err, models.ErrSandboxed):
		msg = "error: the hosts file is on a read-only filesystem"
	}
	fmt.Fprintln(sh.out, sh.style.fail.Render(msg))
}

func (sh *Shell) report(err error, success string) {
	if err != nil {
		sh.fail(err)
		return
	}
	sh.okf("%s", success)
}

// resolve finds an entry by id, name or unique id prefix.
func (sh *Shell) resolve(ref string) (models.Entry, error) {
	entries := sh.c.Entries()
	if e, ok := lo.Find(entries, func(e models.Entry) bool { return e.ID == ref || e.Name == ref }); ok {
		return e, nil
	}
	matches := lo.Filter(entries, func(e models.Entry, _ int) bool { return strings.HasPrefix(e.ID, ref) })
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Entry{}, fmt.Errorf("%w: %s", models.ErrNotFound, ref)
	default:
		return models.Entry{}, fmt.Errorf("%q matches %d entries", ref, len(matches))
	}
}

func (sh *Shell) withEntry(args []string, u string, fn func(models.Entry) error) {
	if len(args) != 1 {
		sh.usage(u)
		return
	}
	e, err := sh.resolve(args[0])
	if err == nil {
		err = fn(e)
	}
	if err != nil {
		sh.fail(err)
	}
}

func (sh *Shell) list() {
	selected := sh.c.Selected()
	for _, e := range sh.c.Entries() {
		if e.IsDefault() {
			fmt.Fprintf(sh.out, "    %s %s\n", e.Name, sh.style.dim.Render("("+e.ID+", base)"))
			continue
		}
		sel := lo.Contains(selected, e.ID)
		fmt.Fprintf(sh.out, "%s %s %s %s\n",
			lo.Ternary(sel, "*", " "),
			lo.Ternary(e.Active, sh.style.ok.Render("[x]"), "[ ]"),
			e.Name,
			sh.style.dim.Render("("+e.ID+")"))
	}
}

func (sh *Shell) selected() {
	ids := sh.c.Selected()
	if len(ids) == 0 {
		fmt.Fprintln(sh.out, "nothing selected")
		return
	}
	byID := lo.KeyBy(sh.c.Entries(), func(e models.Entry) string { return e.ID })
	for _, id := range ids {
		fmt.Fprintf(sh.out, "%s (%s)\n", byID[id].Name, id)
	}
}

func (sh *Shell) selectEntries(sel bool, args []string) {
	if len(args) == 0 {
		sh.usage(lo.Ternary(sel, "select", "unselect") + " <entry...>")
		return
	}
	for _, ref := range args {
		e, err := sh.resolve(ref)
		if err != nil {
			sh.fail(err)
			continue
		}
		if !sel {
			sh.c.Unselect(e.ID)
			continue
		}
		if err := sh.c.Select(e.ID); err != nil {
			sh.fail(err)
		}
	}
	fmt.Fprintf(sh.out, "%d selected\n", len(sh.c.Selected()))
}

func (sh *Shell) printView() {
	v := sh.c.View()
	header := sh.style.title.Render(v.Title)
	if v.ReadOnly {
		header += " " + sh.style.dim.Render("(read-only)")
	}
	fmt.Fprintln(sh.out, header)
	fmt.Fprint(sh.out, v.Content)
	if !strings.HasSuffix(v.Content, "\n") {
		fmt.Fprintln(sh.out)
	}
}

func (sh *Shell) editDefault() {
	sh.c.SelectDefault()
	if err := sh.c.EditDefault(); err != nil {
		sh.fail(err)
		return
	}
	sh.printView()
	content, ok := sh.readContent()
	if !ok {
		return
	}
	if err := sh.c.SetBuffer(content); err != nil {
		sh.fail(err)
		return
	}
	fmt.Fprintln(sh.out, "buffer updated; run save-default or save-default apply")
}

func (sh *Shell) saveDefault(ctx context.Context, args []string) {
	switch {
	case len(args) == 0:
		sh.report(sh.c.SaveDefault(ctx), "default saved")
	case len(args) == 1 && args[0] == "apply":
		sh.report(sh.c.SaveDefaultAndApply(ctx), "default saved and applied")
	default:
		sh.usage("save-default [apply]")
	}
}

// readContent asks for a file path, or reads lines until a single ".".
func (sh *Shell) readContent() (string, bool) {
	fmt.Fprint(sh.out, "Enter file path to load (leave empty for manual input): ")
	if !sh.in.Scan() {
		return "", false
	}
	if path := strings.TrimSpace(sh.in.Text()); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(sh.out, "Failed to read file %q: %v\n", path, err)
			return "", false
		}
		return string(data), true
	}

	fmt.Fprintln(sh.out, "Enter content, finish with a line containing only '.':")
	var b strings.Builder
	for sh.in.Scan() {
		line := sh.in.Text()
		if line == "." {
			return b.String(), true
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return "", false
}

func (sh *Shell) confirm(msg string) bool {
	fmt.Fprintf(sh.out, "%s [y/N]: ", msg)
	if !sh.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sh.in.Text()))
	return answer == "y" || answer == "yes"
}
