// Package prompt loads named markdown templates from
// {category}/{name}.md files, caches them by (category, name), and
// hot-reloads on write via fsnotify.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/obs"
)

var log = obs.For("prompt.library")

var slotPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

type cacheKey struct {
	category string
	name     string
}

// Library caches parsed templates under root/{category}/{name}.md and
// serves them with {slot} substitution. A single fsnotify watcher on root
// invalidates affected cache entries on write.
type Library struct {
	root string

	mu      sync.RWMutex
	cache   map[cacheKey]string
	watcher *fsnotify.Watcher
	closeCh chan struct{}
}

// NewLibrary constructs a Library rooted at dir. Watching starts
// automatically; call Close to stop it.
func NewLibrary(dir string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve prompt dir: %w", err)
	}
	l := &Library{
		root:    abs,
		cache:   make(map[cacheKey]string),
		closeCh: make(chan struct{}),
	}
	if err := l.startWatcher(); err != nil {
		log.WithError(err).Warn("prompt watcher unavailable, templates served without hot reload")
	}
	return l, nil
}

// Render loads (or serves from cache) the template at {category}/{name}.md
// and substitutes each {slot} occurrence with slots[slot]. Slots with no
// value render as empty strings.
func (l *Library) Render(category, name string, slots map[string]string) (string, error) {
	tpl, err := l.template(category, name)
	if err != nil {
		return "", err
	}
	return substitute(tpl, slots), nil
}

func (l *Library) template(category, name string) (string, error) {
	key := cacheKey{category, name}

	l.mu.RLock()
	if tpl, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return tpl, nil
	}
	l.mu.RUnlock()

	path := filepath.Join(l.root, category, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: prompt %s/%s", errs.ErrNotFound, category, name)
		}
		return "", fmt.Errorf("read prompt %s/%s: %w", category, name, err)
	}

	tpl := string(data)
	l.mu.Lock()
	l.cache[key] = tpl
	l.mu.Unlock()
	return tpl, nil
}

// Invalidate drops one cached template, forcing the next Render to reload
// it from disk. Used by the fsnotify watch loop and available directly to
// callers that bypass the watcher (tests, manual reload commands).
func (l *Library) Invalidate(category, name string) {
	l.mu.Lock()
	delete(l.cache, cacheKey{category, name})
	l.mu.Unlock()
}

func substitute(tpl string, slots map[string]string) string {
	return slotPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		return slots[m[1:len(m)-1]]
	})
}

func (l *Library) startWatcher() error {
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("prompt root %q: %w", l.root, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	l.watcher = w

	if err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.Add(path)
	}); err != nil {
		w.Close()
		return fmt.Errorf("walk prompt dir: %w", err)
	}

	go l.watchLoop()
	return nil
}

func (l *Library) watchLoop() {
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 || !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			cat, name := categoryAndName(l.root, ev.Name)
			if cat == "" {
				continue
			}
			l.Invalidate(cat, name)
			log.WithField("category", cat).WithField("name", name).Debug("prompt template invalidated")
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		case <-l.closeCh:
			return
		}
	}
}

func categoryAndName(root, path string) (category, name string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", ""
	}
	rel = filepath.ToSlash(rel)
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], strings.TrimSuffix(parts[1], ".md")
}

// Close stops the background watcher. Safe to call on a Library whose
// watcher failed to start.
func (l *Library) Close() {
	select {
	case <-l.closeCh:
		return
	default:
	}
	close(l.closeCh)
	if l.watcher != nil {
		l.watcher.Close()
	}
}

