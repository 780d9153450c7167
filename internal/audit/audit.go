// Package audit checks the liveness of every URL bookmark in the store.
package audit

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nikbrunner/bmsync/internal/model"
)

// Verdict classifies one checked URL.
type Verdict int

const (
	Alive       Verdict = iota // 2xx or 3xx
	Gone                       // 404 or 410
	Unreachable                // timeout, DNS failure, 5xx, auth walls
)

// Result is the outcome of checking one bookmark.
type Result struct {
	Entry      model.URLEntry
	Verdict    Verdict
	StatusCode int    // 0 when the connection itself failed
	Detail     string // human-readable failure category
}

// Options tunes a run. Zero values get sensible defaults.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	// ExcludeDomains lists domains whose 404s mean "probably behind
	// auth" rather than gone (code forges mask private repos as 404).
	ExcludeDomains []string
	// Progress, when set, is called after each URL finishes.
	Progress func(done, total int)
}

// Run checks every URL bookmark in the store with a bounded worker
// pool and returns one result per bookmark, in tree order.
func Run(store *model.Store, opts Options) []Result {
	entries := store.URLEntries()
	if len(entries) == 0 {
		return nil
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	// The default client logs protocol noise; silence it for the run.
	prevLog := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(prevLog)

	excluded := make(map[string]bool, len(opts.ExcludeDomains))
	for _, d := range opts.ExcludeDomains {
		excluded[strings.ToLower(d)] = true
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	results := make([]Result, len(entries))
	jobs := make(chan int, len(entries))
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = check(client, entries[i], excluded)
				if opts.Progress != nil {
					mu.Lock()
					done++
					opts.Progress(done, len(entries))
					mu.Unlock()
				}
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func check(client *http.Client, entry model.URLEntry, excluded map[string]bool) Result {
	result := Result{Entry: entry}

	// HEAD first; fall back to GET for servers that reject it.
	resp, err := client.Head(entry.Bookmark.URL)
	if err != nil {
		resp, err = client.Get(entry.Bookmark.URL)
		if err != nil {
			result.Verdict = Unreachable
			result.Detail = classifyError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Verdict = Alive
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if domainExcluded(entry.Bookmark.URL, excluded) {
			result.Verdict = Unreachable
			result.Detail = "possibly private (auth required)"
		} else {
			result.Verdict = Gone
		}
	default:
		result.Verdict = Unreachable
		result.Detail = http.StatusText(resp.StatusCode)
	}
	return result
}

func domainExcluded(rawURL string, excluded map[string]bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if excluded[host] {
		return true
	}
	for domain := range excluded {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func classifyError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "timeout"
	case strings.Contains(lower, "connection refused"):
		return "connection refused"
	case strings.Contains(lower, "certificate"), strings.Contains(lower, "tls:"):
		return "TLS error"
	case strings.Contains(lower, "network is unreachable"):
		return "network unreachable"
	default:
		return msg
	}
}
