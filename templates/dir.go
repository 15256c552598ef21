package templates

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeptools/fieldticket/pdfs"
)

// DirSource serves templates preloaded from a static directory
type DirSource struct {
	store *pdfs.TemplateStore[[]byte]
}

var _ Source = (*DirSource)(nil)

// NewDirSource loads every *.pdf under root, keyed by its slash-separated relative path
func NewDirSource(root string) (*DirSource, error) {
	root = filepath.Clean(root)
	store := pdfs.NewTemplateStore[[]byte]()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		store.Store(filepath.ToSlash(rel), data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO][TEMPLATE] loaded %d templates from %s", store.Len(), root)
	return &DirSource{store: store}, nil
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	// every render gets its own pristine copy
	return append([]byte(nil), data...), nil
}

func (s *DirSource) Names() []string {
	return s.store.Keys()
}
