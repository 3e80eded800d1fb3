package script

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
)

// Resolver maps module specifiers to source text. Library modules live in an
// in-memory file store; the main module falls back to the most recently
// loaded scene source when the store has no entry for it.
type Resolver struct {
	store *mem.FS

	mu     sync.RWMutex
	latest string
}

var _ fs.FS = (*Resolver)(nil)

func NewResolver() (*Resolver, error) {
	store, err := mem.NewFS()
	if err != nil {
		return nil, fmt.Errorf("script: create module store: %w", err)
	}
	return &Resolver{store: store}, nil
}

// normPath makes p a valid io/fs path: cleaned and non-rooted.
func normPath(p string) string {
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

// WriteModule stores src under name, creating parent directories.
func (r *Resolver) WriteModule(name string, src []byte) error {
	name = normPath(name)
	if dir := path.Dir(name); dir != "." {
		if err := hackpadfs.MkdirAll(r.store, dir, 0o755); err != nil {
			return fmt.Errorf("script: mkdir %s: %w", dir, err)
		}
	}
	f, err := hackpadfs.OpenFile(r.store, name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("script: open %s: %w", name, err)
	}
	defer f.Close()
	w, ok := f.(io.Writer)
	if !ok {
		return fmt.Errorf("script: write %s: %w", name, hackpadfs.ErrNotImplemented)
	}
	if _, err := w.Write(src); err != nil {
		return fmt.Errorf("script: write %s: %w", name, err)
	}
	return nil
}

// RemoveModule deletes name from the store. Missing entries are ignored.
func (r *Resolver) RemoveModule(name string) error {
	err := hackpadfs.Remove(r.store, normPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadDir copies every .js file below dir on the host into the store,
// keeping paths relative to dir.
func (r *Resolver) LoadDir(dir string) (int, error) {
	host := os.DirFS(dir)
	n := 0
	err := fs.WalkDir(host, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".js" {
			return nil
		}
		src, err := fs.ReadFile(host, p)
		if err != nil {
			return err
		}
		if err := r.WriteModule(p, src); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("script: load library %s: %w", dir, err)
	}
	return n, nil
}

// SetLatest records the source most recently supplied for the main module.
func (r *Resolver) SetLatest(src string) {
	r.mu.Lock()
	r.latest = src
	r.mu.Unlock()
}

func (r *Resolver) Latest() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Open implements fs.FS over the module store.
func (r *Resolver) Open(name string) (fs.File, error) {
	f, err := r.store.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Resolve returns the source for spec. The store is read by exact path
// first. An empty or missing entry for MainModule yields the latest source;
// any other miss is ErrModuleNotFound.
func (r *Resolver) Resolve(spec string) ([]byte, error) {
	name := normPath(spec)
	src, err := r.readFile(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("script: read module %s: %w", name, err)
	}
	if len(src) > 0 {
		return src, nil
	}
	if name == MainModule {
		if latest := r.Latest(); latest != "" {
			return []byte(latest), nil
		}
	}
	return nil, newLoadError(KindModuleNotFound, moduleNotFoundMessage(spec), fs.ErrNotExist)
}

// readFile reads a regular file from the store; directories read as missing.
func (r *Resolver) readFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fs.ErrNotExist
	}
	info, err := hackpadfs.Stat(r.store, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(r, name)
}

func moduleNotFoundMessage(spec string) string {
	return fmt.Sprintf("Unable to load module '%s'", spec)
}
