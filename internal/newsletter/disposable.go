package newsletter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// DisposableList is a blocklist of disposable email domains backed by a
// plain-text cache file, one domain per line. The worker refreshes the file
// daily from a remote list; lookups are served from memory.
type DisposableList struct {
	path   string
	url    string
	logger *slog.Logger
	client *http.Client

	mu      sync.RWMutex
	domains map[string]struct{}
}

func NewDisposableList(path, url string, logger *slog.Logger) *DisposableList {
	return &DisposableList{
		path:    path,
		url:     url,
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		domains: make(map[string]struct{}),
	}
}

// Load reads the cache file into memory. A missing file is not an error;
// the list stays empty until the first refresh.
func (d *DisposableList) Load() error {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Warn("disposable domain cache not found, starting empty", "path", d.path)
			return nil
		}
		return fmt.Errorf("opening blocklist: %w", err)
	}
	defer f.Close()

	domains := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		domain := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if domain == "" || strings.HasPrefix(domain, "#") {
			continue
		}
		domains[domain] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading blocklist: %w", err)
	}

	d.mu.Lock()
	d.domains = domains
	d.mu.Unlock()

	d.logger.Info("loaded disposable domain blocklist", "domains", len(domains))
	return nil
}

// Refresh downloads the remote list, rewrites the cache file and reloads it.
func (d *DisposableList) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching blocklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching blocklist: status %d", resp.StatusCode)
	}

	tmp := d.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating blocklist file: %w", err)
	}

	count := 0
	scanner := bufio.NewScanner(resp.Body)
	w := bufio.NewWriter(f)
	for scanner.Scan() {
		domain := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if domain == "" || strings.HasPrefix(domain, "#") {
			continue
		}
		fmt.Fprintln(w, domain)
		count++
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("reading remote blocklist: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing blocklist file: %w", err)
	}

	d.logger.Info("refreshed disposable domain blocklist", "domains", count)
	return d.Load()
}

// IsDisposable reports whether the email's domain is on the blocklist.
func (d *DisposableList) IsDisposable(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])

	d.mu.RLock()
	defer d.mu.RUnlock()
	_, blocked := d.domains[domain]
	return blocked
}
