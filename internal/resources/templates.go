// Package resources serves the HTML templates. The defaults are embedded
// in the binary; an override directory replaces any template it defines
// and is re-parsed whenever its contents change.
package resources

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var embedded embed.FS

// Templates is safe for concurrent use; reloads swap the parsed set
// atomically.
type Templates struct {
	base   *template.Template
	dir    string
	logger *zap.Logger

	mu  sync.RWMutex
	set *template.Template
}

// NewTemplates parses the embedded templates and, when dir is set, the
// overrides in dir.
func NewTemplates(
	dir string,
	logger *zap.Logger,
) (
	*Templates,
	error,
) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := template.ParseFS(embedded, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
	}

	t := &Templates{
		base:   base,
		dir:    dir,
		logger: logger,
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses the override directory on top of the embedded set. On
// failure the previous set stays in place.
func (t *Templates) Reload() error {
	set, err := t.base.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone embedded templates: %w", err)
	}

	if t.dir != "" {
		matches, err := filepath.Glob(filepath.Join(t.dir, "*.html"))
		if err != nil {
			return fmt.Errorf("failed to list templates in '%s': %w", t.dir, err)
		}
		if len(matches) > 0 {
			if _, err := set.ParseFiles(matches...); err != nil {
				t.logger.Error("failed to parse templates",
					zap.String("dir", t.dir),
					zap.Error(err),
				)
				return fmt.Errorf("failed to parse templates from '%s': %w", t.dir, err)
			}
		}
	}

	t.mu.Lock()
	t.set = set
	t.mu.Unlock()

	t.logger.Info("loaded templates", zap.String("dir", t.dir))
	return nil
}

// Render executes the named template into a buffer so a failure never
// leaves a half-written response.
func (t *Templates) Render(
	name string,
	data any,
) (
	[]byte,
	error,
) {
	t.mu.RLock()
	set := t.set
	t.mu.RUnlock()

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Watch reloads the templates whenever the override directory changes,
// until ctx is cancelled. It is a no-op without an override directory.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}
	if _, err := os.Stat(t.dir); err != nil {
		return fmt.Errorf("can't watch templates dir: %w", err)
	}
	return watchDir(ctx, t.dir, t.logger, func() {
		// errors are already logged
		_ = t.Reload()
	})
}
