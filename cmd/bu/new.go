package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vanderheijden86/bu/internal/datasource"
	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
)

// isTerminal checks if stdin is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form, falling back to accessible prompts without a TTY.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// newFlags prefill the `bu new` form. --yes skips the form.
type newFlags struct {
	title       string
	typ         string
	priority    int
	description string
	labels      string
	parent      string
	yes         bool
}

func parseNewFlags(args []string) (newFlags, error) {
	var f newFlags
	fs := pflag.NewFlagSet("bu new", pflag.ContinueOnError)
	fs.StringVarP(&f.title, "title", "t", "", "title")
	fs.StringVar(&f.typ, "type", string(model.TypeTask), "type: task, bug, feature, epic, chore")
	fs.IntVarP(&f.priority, "priority", "p", 2, "priority 0-4")
	fs.StringVarP(&f.description, "description", "d", "", "description")
	fs.StringVarP(&f.labels, "labels", "l", "", "comma separated labels")
	fs.StringVar(&f.parent, "parent", "", "parent record ID")
	fs.BoolVarP(&f.yes, "yes", "y", false, "create without showing the form (requires --title)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return f, nil
}

func (f newFlags) payload() mutation.Payload {
	return mutation.Payload{
		Title:       strings.TrimSpace(f.title),
		Type:        model.RecordType(f.typ),
		Priority:    f.priority,
		Description: strings.TrimSpace(f.description),
		Labels:      model.NormalizeLabels(strings.Split(f.labels, ",")),
		Parent:      strings.TrimSpace(f.parent),
	}
}

// runNew creates one record and prints its ID.
func runNew(ctx context.Context, args []string, reader datasource.Reader, ex mutation.Executor, stdout io.Writer) error {
	f, err := parseNewFlags(args)
	if err != nil {
		return err
	}
	if !f.yes {
		if err := promptNew(&f); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(stdout, "cancelled")
				return nil
			}
			return err
		}
	}

	p := f.payload()
	var idx *model.Index
	if p.Parent != "" {
		snap, err := reader.ReadSnapshot(ctx)
		if err != nil {
			return err
		}
		idx = model.NewIndex(snap)
	}

	t, err := mutation.NewCoordinator().RequestCreate(p, idx)
	if err != nil {
		return err
	}
	out := ex.Execute(ctx, t.Command)
	if !out.OK {
		return fmt.Errorf("%w: %s", model.ErrMutationFailed, out.Message)
	}
	if out.CreatedID != "" {
		fmt.Fprintf(stdout, "Created %s\n", out.CreatedID)
	} else {
		fmt.Fprintln(stdout, "Created")
	}
	return nil
}

func promptNew(f *newFlags) error {
	typeOpts := make([]huh.Option[string], len(model.KnownTypes))
	for i, t := range model.KnownTypes {
		typeOpts[i] = huh.NewOption(string(t), string(t))
	}
	var prioOpts []huh.Option[int]
	for p := model.MinPriority; p <= model.MaxPriority; p++ {
		prioOpts = append(prioOpts, huh.NewOption(fmt.Sprintf("P%d", p), p))
	}

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&f.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Type").
				Options(typeOpts...).
				Value(&f.typ),
			huh.NewSelect[int]().
				Title("Priority").
				Options(prioOpts...).
				Value(&f.priority),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Description").
				Value(&f.description),
			huh.NewInput().
				Title("Labels (comma separated)").
				Value(&f.labels),
			huh.NewInput().
				Title("Parent ID (optional)").
				Value(&f.parent),
		),
	)
	return form.Run()
}
