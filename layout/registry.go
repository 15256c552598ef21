package layout

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
)

// Built-in layout names
const (
	ServiceTicket = "service-ticket"
	Timesheet     = "timesheet"
)

//go:embed builtin/*.json
var builtinFS embed.FS

var ErrUnknown = errors.New("unknown layout")

// Registry holds the named layouts.
// Reload builds a new map and swaps the atomic pointer, so it can be used to Hot-Reload
type Registry struct {
	Dir     string // optional override directory. files named <layout>.json
	layouts atomic.Pointer[map[string]*Layout]
}

func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{Dir: dir}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Reload() error {
	layouts := make(map[string]*Layout)
	if err := loadDir(builtinFS, "builtin", layouts); err != nil {
		return fmt.Errorf("builtin layouts: %w", err)
	}
	builtinCnt := len(layouts)
	if r.Dir != "" {
		if err := loadDir(os.DirFS(r.Dir), ".", layouts); err != nil {
			return fmt.Errorf("layouts dir %s: %w", r.Dir, err)
		}
	}
	r.layouts.Store(&layouts) // atomic store
	log.Printf("[INFO][LAYOUT] %d layouts loaded (%d builtin)", len(layouts), builtinCnt)
	return nil
}

func loadDir(fsys fs.FS, dir string, into map[string]*Layout) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return err
		}
		l, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		into[l.Name] = l // later directories override
	}
	return nil
}

// Get returns the named layout. Layouts are shared and must not be mutated
func (r *Registry) Get(name string) (*Layout, error) {
	m := r.layouts.Load()
	if m == nil {
		return nil, ErrUnknown
	}
	l, ok := (*m)[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return l, nil
}

func (r *Registry) Names() []string {
	m := r.layouts.Load()
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(*m))
	for name := range *m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
