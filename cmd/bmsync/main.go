package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/nikbrunner/bmsync/internal/audit"
	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/engine"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/netscape"
	"github.com/nikbrunner/bmsync/internal/search"
	"github.com/nikbrunner/bmsync/internal/storage"
	"github.com/nikbrunner/bmsync/internal/storefile"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
	case "browsers":
		runBrowsers()
	case "import":
		runImport(os.Args[2:])
	case "push":
		requireArg("push <browser>", 3)
		runPush(os.Args[2])
	case "sync":
		runSync(os.Args[2:])
	case "export-file":
		requireArg("export-file <path>", 3)
		runExportFile(os.Args[2])
	case "import-file":
		requireArg("import-file <path> [--overwrite|--use-imported]", 3)
		runImportFile(os.Args[2], os.Args[3:])
	case "export-html":
		requireArg("export-html <path>", 3)
		runExportHTML(os.Args[2])
	case "import-html":
		requireArg("import-html <path>", 3)
		runImportHTML(os.Args[2])
	case "add":
		requireArg("add <url> [title]", 3)
		runAdd(os.Args[2:])
	case "find":
		requireArg("find <query> [-copy]", 3)
		runFind(os.Args[2:])
	case "audit":
		runAudit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`bmsync - bookmark store synchronized with your browsers

Usage:
  bmsync browsers                 Show detected browsers and their status
  bmsync import <browser>|--all   Pull a browser's bookmarks into the store
  bmsync push <browser>           Replace a browser's bookmarks with the store
  bmsync sync <browser>|--all     Two-way additive sync (--dry-run to preview)
  bmsync export-file <path>       Export the store as a JSON file
  bmsync import-file <path>       Import a store JSON file
                                  (--overwrite replaces everything,
                                   --use-imported resolves conflicts to the file)
  bmsync export-html <path>       Export as Netscape bookmark HTML
  bmsync import-html <path>       Import a Netscape bookmark HTML file
  bmsync add <url> [title]        Add a bookmark to the configured default root
  bmsync find <query> [-copy]     Fuzzy-find bookmarks (-copy puts the best
                                  match's URL on the clipboard)
  bmsync audit                    Check every bookmark URL for dead links
  bmsync help                     Show this help

Browsers: chrome, edge, firefox

Data storage:
  ~/.config/bmsync/bookmarks.json
  ~/.config/bmsync/backups/
`)
}

func requireArg(usage string, n int) {
	if len(os.Args) < n {
		fmt.Fprintf(os.Stderr, "Usage: bmsync %s\n", usage)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// setup loads the store and wires the engine against the real browser
// environment.
func setup() (*engine.Engine, *storage.JSONStorage, *model.Store) {
	storePath, err := storage.DefaultStorePath()
	if err != nil {
		fail("resolving store path: %v", err)
	}
	backupsDir, err := storage.DefaultBackupsDir()
	if err != nil {
		fail("resolving backups dir: %v", err)
	}

	st := storage.NewJSONStorage(storePath, backupsDir)
	store, err := st.Load()
	if err != nil {
		fail("loading store: %v", err)
	}

	e := engine.New(browser.NewEnvironment(), st)
	e.Progress = func(stage, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", stage, message)
	}
	return e, st, store
}

func runBrowsers() {
	env := browser.NewEnvironment()
	for _, info := range env.Detect() {
		status := "not installed"
		if info.Installed {
			status = "installed"
			if info.Running {
				status += ", running"
			}
		}
		fmt.Printf("%-10s %-18s %s\n", info.Name, "("+status+")", info.BookmarkPath)
	}
}

func runImport(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmsync import <browser>|--all")
		os.Exit(1)
	}
	e, _, store := setup()

	if args[0] == "--all" {
		results, err := e.ImportAll(store)
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s: failed (%v)\n", r.Browser, r.Err)
				continue
			}
			fmt.Printf("%s: %d added, %d skipped\n", r.Browser, r.Added, r.Skipped)
		}
		if err != nil {
			os.Exit(1)
		}
		return
	}

	added, skipped, err := e.Import(args[0], store)
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("%d added, %d skipped\n", added, skipped)
}

func runPush(name string) {
	e, _, store := setup()
	if err := e.Push(name, store); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Pushed %d bookmarks to %s\n", len(store.AllBookmarks()), name)
}

func runSync(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmsync sync <browser>|--all [--dry-run]")
		os.Exit(1)
	}
	dryRun := false
	for _, a := range args[1:] {
		if a == "--dry-run" {
			dryRun = true
		}
	}
	e, _, store := setup()

	if args[0] == "--all" {
		if dryRun {
			fail("--dry-run supports a single browser")
		}
		failed := false
		for _, r := range e.SyncAll(store) {
			if r.Err != nil && !engine.IsRunningError(r.Err) {
				fmt.Printf("%s: failed (%v)\n", r.Browser, r.Err)
				failed = true
				continue
			}
			line := fmt.Sprintf("%s: %d store changes, %d browser changes", r.Browser, r.StoreChanges, r.BrowserChanges)
			if r.Err != nil {
				line += " (browser running, write skipped)"
			}
			fmt.Println(line)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	actions, _, err := e.PlanSync(store, args[0])
	if err != nil {
		fail("%v", err)
	}
	if dryRun {
		if len(actions) == 0 {
			fmt.Println("Nothing to do")
			return
		}
		for _, a := range actions {
			fmt.Printf("%-14s %-40s %s\n", a.Type, a.Bookmark.Title, a.FolderPath)
		}
		return
	}

	sc, bc, err := e.ExecuteSync(store, args[0], actions)
	if err != nil && !engine.IsRunningError(err) {
		fail("%v", err)
	}
	fmt.Printf("%d store changes, %d browser changes\n", sc, bc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func runExportFile(path string) {
	_, _, store := setup()
	if err := storefile.Export(store, path); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Exported %d bookmarks to %s\n", len(store.AllBookmarks()), path)
}

func runImportFile(path string, flags []string) {
	mode := storefile.ModeMerge
	useImported := false
	for _, f := range flags {
		switch f {
		case "--overwrite":
			mode = storefile.ModeOverwrite
		case "--use-imported":
			useImported = true
		}
	}

	_, st, store := setup()
	preview, err := storefile.PlanImport(store, path)
	if err != nil {
		fail("%v", err)
	}

	for _, c := range preview.Conflicts {
		if useImported {
			c.Resolution = storefile.UseImported
		} else {
			fmt.Printf("Conflict at %s: keeping %q, file has %q (use --use-imported to take the file's)\n",
				c.FolderPath, c.Existing.Title, c.Imported.Title)
		}
	}

	added, updated, err := storefile.ExecuteImport(store, preview, mode, st)
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("%d added, %d updated\n", added, updated)
}

func runExportHTML(path string) {
	_, _, store := setup()
	f, err := os.Create(path)
	if err != nil {
		fail("%v", err)
	}
	defer f.Close()
	if err := netscape.Export(store, f); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Exported %d bookmarks to %s\n", len(store.AllBookmarks()), path)
}

func runImportHTML(path string) {
	_, st, store := setup()
	f, err := os.Open(path)
	if err != nil {
		fail("%v", err)
	}
	defer f.Close()

	snap, err := netscape.Parse(f)
	if err != nil {
		fail("%v", err)
	}
	added, skipped := engine.MergeSnapshot(store, snap)
	if added > 0 {
		if err := st.Save(store); err != nil {
			fail("saving store: %v", err)
		}
	}
	fmt.Printf("%d added, %d skipped\n", added, skipped)
}

func runAdd(args []string) {
	url := args[0]
	title := url
	if len(args) > 1 {
		title = strings.Join(args[1:], " ")
	}

	_, st, store := setup()
	configPath, err := storage.DefaultConfigFilePath()
	if err != nil {
		fail("%v", err)
	}
	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		fail("loading config: %v", err)
	}

	bm := model.NewBookmark(model.NewBookmarkParams{
		Type:  model.TypeURL,
		Title: title,
		URL:   url,
	})
	if store.Add(bm, "", cfg.DefaultRoot) == nil {
		fail("unknown root %q in config", cfg.DefaultRoot)
	}
	if err := st.Save(store); err != nil {
		fail("saving store: %v", err)
	}
	fmt.Printf("Added %q to %s\n", title, cfg.DefaultRoot)
}

func runFind(args []string) {
	copyURL := false
	var terms []string
	for _, a := range args {
		if a == "-copy" {
			copyURL = true
			continue
		}
		terms = append(terms, a)
	}
	query := strings.Join(terms, " ")

	_, _, store := setup()
	results := search.Bookmarks(store, query)
	if len(results) == 0 {
		fmt.Printf("No bookmarks found for %q\n", query)
		return
	}

	for _, entry := range results {
		fmt.Printf("%-40s %-30s %s\n", entry.Bookmark.Title, entry.FolderPath(), entry.Bookmark.URL)
	}

	if copyURL {
		best := results[0].Bookmark
		if err := clipboard.WriteAll(best.URL); err != nil {
			fail("copying to clipboard: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Copied %s\n", best.URL)
	}
}

func runAudit() {
	_, _, store := setup()

	configPath, err := storage.DefaultConfigFilePath()
	if err != nil {
		fail("%v", err)
	}
	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		fail("loading config: %v", err)
	}

	results := audit.Run(store, audit.Options{
		Concurrency:    10,
		Timeout:        10 * time.Second,
		ExcludeDomains: cfg.AuditExcludeDomains,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rChecking %d/%d", done, total)
		},
	})
	fmt.Fprintln(os.Stderr)

	alive, gone, unreachable := 0, 0, 0
	for _, r := range results {
		switch r.Verdict {
		case audit.Alive:
			alive++
		case audit.Gone:
			gone++
			fmt.Printf("GONE        %-40s %s\n", r.Entry.Bookmark.Title, r.Entry.Bookmark.URL)
		case audit.Unreachable:
			unreachable++
			fmt.Printf("UNREACHABLE %-40s %s (%s)\n", r.Entry.Bookmark.Title, r.Entry.Bookmark.URL, r.Detail)
		}
	}
	fmt.Printf("\n%d alive, %d gone, %d unreachable\n", alive, gone, unreachable)
}
