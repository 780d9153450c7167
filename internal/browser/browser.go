// Package browser detects installed browsers, their bookmark file
// locations and whether their process is currently running.
package browser

import (
	"os"
	"path/filepath"
	"runtime"
)

// Supported browser names.
const (
	Chrome  = "chrome"
	Edge    = "edge"
	Firefox = "firefox"
)

// Process names per browser, matched case-insensitively against the
// running process list.
var (
	ChromeProcessNames  = []string{"chrome", "google-chrome", "google-chrome-stable", "chrome.exe"}
	EdgeProcessNames    = []string{"msedge", "microsoft-edge", "microsoft-edge-stable", "msedge.exe"}
	FirefoxProcessNames = []string{"firefox", "firefox.exe", "firefox-esr"}
)

// Info describes one detected browser.
type Info struct {
	Name         string
	DisplayName  string
	Installed    bool
	Running      bool
	BookmarkPath string
	ProcessNames []string
}

// Environment resolves browsers on the local system. The process check is
// behind ProcessChecker so engines and codecs are testable without real
// process enumeration.
type Environment struct {
	Checker ProcessChecker
}

// NewEnvironment creates an Environment backed by OS process enumeration.
func NewEnvironment() *Environment {
	return &Environment{Checker: SystemProcessChecker{}}
}

// IsRunning reports whether any process matching the given names runs.
func (e *Environment) IsRunning(processNames []string) bool {
	return e.Checker.IsRunning(processNames)
}

// Detect returns the status of all supported browsers.
func (e *Environment) Detect() []Info {
	chromePath := chromeBookmarkPath()
	edgePath := edgeBookmarkPath()
	firefoxPath := firefoxPlacesPath()

	return []Info{
		{
			Name:         Chrome,
			DisplayName:  "Google Chrome",
			Installed:    chromePath != "",
			Running:      e.IsRunning(ChromeProcessNames),
			BookmarkPath: chromePath,
			ProcessNames: ChromeProcessNames,
		},
		{
			Name:         Edge,
			DisplayName:  "Microsoft Edge",
			Installed:    edgePath != "",
			Running:      e.IsRunning(EdgeProcessNames),
			BookmarkPath: edgePath,
			ProcessNames: EdgeProcessNames,
		},
		{
			Name:         Firefox,
			DisplayName:  "Mozilla Firefox",
			Installed:    firefoxPath != "",
			Running:      e.IsRunning(FirefoxProcessNames),
			BookmarkPath: firefoxPath,
			ProcessNames: FirefoxProcessNames,
		},
	}
}

// Get returns info for a single browser by name.
func (e *Environment) Get(name string) (Info, bool) {
	for _, info := range e.Detect() {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}

// ProcessNamesFor returns the process name list for a browser name, or nil
// for unknown browsers.
func ProcessNamesFor(name string) []string {
	switch name {
	case Chrome:
		return ChromeProcessNames
	case Edge:
		return EdgeProcessNames
	case Firefox:
		return FirefoxProcessNames
	}
	return nil
}

func chromeBookmarkPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var path string
	switch runtime.GOOS {
	case "linux":
		path = filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks")
	case "windows":
		path = filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "User Data", "Default", "Bookmarks")
	case "darwin":
		path = filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	default:
		return ""
	}
	return existingPath(path)
}

func edgeBookmarkPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var path string
	switch runtime.GOOS {
	case "linux":
		path = filepath.Join(home, ".config", "microsoft-edge", "Default", "Bookmarks")
	case "windows":
		path = filepath.Join(os.Getenv("LOCALAPPDATA"), "Microsoft", "Edge", "User Data", "Default", "Bookmarks")
	case "darwin":
		path = filepath.Join(home, "Library", "Application Support", "Microsoft Edge", "Default", "Bookmarks")
	default:
		return ""
	}
	return existingPath(path)
}

func existingPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
