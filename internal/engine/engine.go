// Package engine implements the import, export and sync operations
// between the canonical store and the supported browsers. Every
// operation is synchronous; callers dispatch them on their own worker
// and receive progress through the Progress callback.
package engine

import (
	"fmt"

	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/codec"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// Env resolves browsers and their process state. *browser.Environment
// satisfies it; tests substitute a fake.
type Env interface {
	Detect() []browser.Info
	Get(name string) (browser.Info, bool)
	IsRunning(processNames []string) bool
}

// Engine drives store<->browser operations.
type Engine struct {
	Env     Env
	Storage *storage.JSONStorage

	// Progress, when set, receives incremental status notifications as a
	// stage label plus a message. It is never called concurrently.
	Progress func(stage, message string)
}

// New creates an Engine for the given environment and store storage.
func New(env Env, st *storage.JSONStorage) *Engine {
	return &Engine{Env: env, Storage: st}
}

func (e *Engine) report(stage, message string) {
	if e.Progress != nil {
		e.Progress(stage, message)
	}
}

// browserTarget resolves a browser name to its info and codec. The
// codec's backups go next to the store's own backups.
func (e *Engine) browserTarget(name string) (browser.Info, codec.Codec, error) {
	info, ok := e.Env.Get(name)
	if !ok {
		return browser.Info{}, nil, fmt.Errorf("unknown browser %q", name)
	}
	if !info.Installed || info.BookmarkPath == "" {
		return browser.Info{}, nil, fmt.Errorf("%s is not installed or has no bookmark file", name)
	}
	c, err := codec.For(name, e.Env, e.Storage.BackupsDir())
	if err != nil {
		return browser.Info{}, nil, err
	}
	return info, c, nil
}
