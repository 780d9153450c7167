// Package codec converts between the canonical bookmark tree and the
// native formats of the supported browsers. All codecs share one
// destructive-write policy: refuse while the browser runs, back up the
// target first, and treat a failed backup as fatal.
package codec

import (
	"errors"
	"fmt"
	"os"

	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// Codec reads a browser's bookmark file into a snapshot store and writes
// a store back out in the browser's native format.
type Codec interface {
	Read(path string) (*model.Store, error)
	Write(store *model.Store, path string) error
}

// RunningError reports that a write was refused because the target
// browser's process owns the file right now.
type RunningError struct {
	Browser string
}

func (e *RunningError) Error() string {
	return e.Browser + " is running; close it before writing bookmarks"
}

// IsRunningError reports whether err is a refuse-while-running error.
func IsRunningError(err error) bool {
	var re *RunningError
	return errors.As(err, &re)
}

// For returns the codec for a browser name. Chrome and Edge share one
// format under different path and process names.
func For(name string, checker browser.ProcessChecker, backupsDir string) (Codec, error) {
	switch name {
	case browser.Chrome, browser.Edge:
		return NewChromeCodec(name, checker, backupsDir), nil
	case browser.Firefox:
		return NewFirefoxCodec(checker, backupsDir), nil
	}
	return nil, fmt.Errorf("unknown browser %q", name)
}

// writeGuard enforces the shared write policy: refuse while the browser's
// process runs, then back up the existing target file. A backup failure
// aborts the write.
func writeGuard(checker browser.ProcessChecker, browserName, path, backupPrefix, backupExt, backupsDir string) error {
	if checker.IsRunning(browser.ProcessNamesFor(browserName)) {
		return &RunningError{Browser: browserName}
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := storage.BackupFile(path, backupsDir, backupPrefix, backupExt); err != nil {
			return fmt.Errorf("backup %s before write: %w", path, err)
		}
	}
	return nil
}
