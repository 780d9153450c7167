package engine

import (
	"fmt"

	"github.com/nikbrunner/bmsync/internal/codec"
	"github.com/nikbrunner/bmsync/internal/model"
)

// Push replaces a browser's bookmark_bar and other contents with the
// store's. This is destructive on the browser side: browser-only
// bookmarks absent from the store are discarded. The store file is
// backed up first, because after a push the browser no longer holds
// anything the store doesn't.
func (e *Engine) Push(name string, store *model.Store) error {
	info, c, err := e.browserTarget(name)
	if err != nil {
		return err
	}
	if e.Env.IsRunning(info.ProcessNames) {
		return &codec.RunningError{Browser: name}
	}

	e.report("backup", "backing up store")
	if _, err := e.Storage.Backup(store); err != nil {
		return fmt.Errorf("backup store before push: %w", err)
	}

	e.report("write", "writing "+name+" bookmarks")
	if err := c.Write(store, info.BookmarkPath); err != nil {
		return fmt.Errorf("push to %s: %w", name, err)
	}
	e.report("done", "pushed store to "+name)
	return nil
}
