// Package cli is the fieldticket command line: the server and local renders
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/zeptools/fieldticket/conf"
	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs/fpdfw"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/templates"
)

var ErrUsage = errors.New("usage")

// Streams the commands read and write. Zero values fall back to the process streams
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (s Streams) orDefault() Streams {
	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	return s
}

func Execute(ctx context.Context, args []string, streams Streams) error {
	streams = streams.orDefault()
	if len(args) < 1 {
		return usageError()
	}
	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:])
	case "render":
		return runRender(ctx, args[1:], streams)
	case "layouts":
		return runLayouts(ctx, args[1:], streams)
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: fieldticket <serve|render|layouts> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `usage:
  fieldticket serve [-root DIR]
  fieldticket render ticket|timesheet -in FILE [-out FILE] [-layout NAME]
                     [-templates DIR | -template-url URL] [-layouts DIR] [-materials SHEET]
  fieldticket layouts list [-layouts DIR]
  fieldticket layouts validate [-templates DIR | -template-url URL] [-layouts DIR]
`)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	root := fs.String("root", ".", "app root holding config/")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rootCtx, rootCancel := context.WithCancel(ctx)
	defer rootCancel()
	core := &conf.Core{}
	if err := core.BaseInit(*root, rootCtx, rootCancel); err != nil {
		return err
	}
	defer core.ResourceCleanUp()
	if err := core.Boot(); err != nil {
		return err
	}

	stopped := make(chan struct{})
	go func() {
		<-rootCtx.Done()
		core.StopServices()
		close(stopped)
	}()
	err := core.StartServices()
	if err == nil {
		err = core.WaitServicesDone()
	}
	rootCancel()
	<-stopped
	if err != nil {
		log.Printf("[ERROR] %s: %v", core.AppName, err)
		return err
	}
	log.Printf("[INFO] %s shutdown complete", core.AppName)
	return nil
}

// sourceFlags are shared by the commands that load layouts and templates
type sourceFlags struct {
	templatesDir string
	templateURL  string
	layoutsDir   string
}

func (sf *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.templatesDir, "templates", "", "directory of template PDFs")
	fs.StringVar(&sf.templateURL, "template-url", "", "static storage base URL for template PDFs")
	fs.StringVar(&sf.layoutsDir, "layouts", "", "directory of layout overrides")
}

func (sf *sourceFlags) source() (templates.Source, error) {
	switch {
	case sf.templateURL != "":
		return &templates.HTTPSource{
			Client: &http.Client{},
			Conf:   &templates.HTTPConf{BaseURL: sf.templateURL},
		}, nil
	case sf.templatesDir != "":
		return templates.NewDirSource(sf.templatesDir)
	default:
		return nil, fmt.Errorf("%w: -templates or -template-url is required", ErrUsage)
	}
}

func (sf *sourceFlags) runner() (*jobs.Runner, error) {
	registry, err := layout.NewRegistry(sf.layoutsDir)
	if err != nil {
		return nil, err
	}
	source, err := sf.source()
	if err != nil {
		return nil, err
	}
	return &jobs.Runner{
		Layouts:  registry,
		Renderer: &render.Renderer{Source: source, NewWriter: fpdfw.Factory},
	}, nil
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runLayouts(ctx context.Context, args []string, streams Streams) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: fieldticket layouts <list|validate> [...]", ErrUsage)
	}
	var sf sourceFlags
	fs := flag.NewFlagSet("layouts "+args[0], flag.ContinueOnError)
	fs.SetOutput(streams.Stderr)
	sf.register(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	switch args[0] {
	case "list":
		registry, err := layout.NewRegistry(sf.layoutsDir)
		if err != nil {
			return err
		}
		for _, name := range registry.Names() {
			_, _ = fmt.Fprintln(streams.Stdout, name)
		}
		return nil
	case "validate":
		runner, err := sf.runner()
		if err != nil {
			return err
		}
		return validateLayouts(ctx, runner, streams.Stdout)
	default:
		return fmt.Errorf("%w: unknown layouts command %q", ErrUsage, args[0])
	}
}

// validateLayouts checks every layout against its template and fails if any does not fit
func validateLayouts(ctx context.Context, runner *jobs.Runner, w io.Writer) error {
	var failed int
	for _, name := range runner.Layouts.Names() {
		l, err := runner.Layouts.Get(name)
		if err != nil {
			return err
		}
		checkCtx, cancel := context.WithTimeout(ctx, time.Minute)
		page, err := runner.Renderer.Check(checkCtx, l)
		cancel()
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "FAIL %s (%s): %v\n", name, l.Template, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "ok   %s (%s) %s %gx%gpt\n", name, l.Template, page.Name, page.Width, page.Height)
	}
	if failed > 0 {
		return fmt.Errorf("%d layouts do not fit their templates", failed)
	}
	return nil
}
