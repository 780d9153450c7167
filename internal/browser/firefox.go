package browser

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// firefoxPlacesPath resolves the places.sqlite of the default Firefox
// profile, preferring the profile profiles.ini marks Default=1 and falling
// back to any profile directory that carries a places.sqlite.
func firefoxPlacesPath() string {
	base := firefoxBaseDir()
	if base == "" {
		return ""
	}

	if profile := defaultProfileDir(filepath.Join(base, "profiles.ini"), base); profile != "" {
		if path := existingPath(filepath.Join(profile, "places.sqlite")); path != "" {
			return path
		}
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if path := existingPath(filepath.Join(base, entry.Name(), "places.sqlite")); path != "" {
			return path
		}
	}
	return ""
}

func firefoxBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var path string
	switch runtime.GOOS {
	case "linux":
		path = filepath.Join(home, ".mozilla", "firefox")
	case "windows":
		path = filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox")
	case "darwin":
		path = filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// defaultProfileDir parses profiles.ini and returns the directory of the
// profile marked Default=1, resolving relative paths against baseDir.
func defaultProfileDir(iniPath, baseDir string) string {
	file, err := os.Open(iniPath)
	if err != nil {
		return ""
	}
	defer file.Close()

	type profile struct {
		path       string
		isRelative bool
		isDefault  bool
	}

	var profiles []profile
	var current *profile

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if strings.HasPrefix(line, "[Profile") {
				profiles = append(profiles, profile{isRelative: true})
				current = &profiles[len(profiles)-1]
			} else {
				current = nil
			}
			continue
		}
		if current == nil {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Path":
			current.path = value
		case "IsRelative":
			current.isRelative = value == "1"
		case "Default":
			current.isDefault = value == "1"
		}
	}
	if err := scanner.Err(); err != nil {
		return ""
	}

	for _, p := range profiles {
		if p.isDefault && p.path != "" {
			if p.isRelative {
				return filepath.Join(baseDir, p.path)
			}
			return p.path
		}
	}
	return ""
}
