// Package landscape fetches and caches a foundation's landscape YAML
// document.
package landscape

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// ttl is the cache entry lifetime.
const ttl = 30 * time.Minute

// Entry is the foundation-landscape-derived extras for one project,
// keyed by its clomonitor_name.
type Entry struct {
	AnnualReviewDate string `yaml:"annual_review_date,omitempty"`
	AnnualReviewURL  string `yaml:"annual_review_url,omitempty"`
	SummaryTableURL  string `yaml:"summary_table_url,omitempty"`
	// SummaryReleaseRate is wired under the wire-level key
	// `summary_release_rate` even though the rendered field is named
	// `release_date` — preserved verbatim from the source's apparent
	// misname.
	SummaryReleaseRate string `yaml:"summary_release_rate,omitempty"`
}

type document map[string]Entry // keyed by clomonitor_name

type cacheEntry struct {
	value    document
	fetchedAt time.Time
}

// Cache is a one-entry-per-URL, 30-minute-TTL, single-flight cache over
// landscape documents.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
	client  *http.Client
}

// NewCache returns an empty Cache using client for HTTP fetches (or
// http.DefaultClient if nil).
func NewCache(client *http.Client) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{entries: make(map[string]cacheEntry), client: client}
}

// Lookup returns the Entry for clomonitorName within the landscape
// document at url, fetching (and caching) the document if needed.
// Concurrent lookups for the same url collapse into one HTTP fetch.
func (c *Cache) Lookup(url, clomonitorName string) (Entry, bool, error) {
	doc, err := c.fetch(url)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := doc[clomonitorName]
	return e, ok, nil
}

func (c *Cache) fetch(url string) (document, error) {
	c.mu.Lock()
	if e, ok := c.entries[url]; ok && time.Since(e.fetchedAt) < ttl {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(url, func() (any, error) {
		doc, err := c.fetchRemote(url)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[url] = cacheEntry{value: doc, fetchedAt: time.Now()}
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(document), nil
}

func (c *Cache) fetchRemote(url string) (document, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch landscape %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch landscape %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read landscape %s: %w", url, err)
	}

	var raw struct {
		Landscape []struct {
			Subcategories []struct {
				Items []struct {
					ClomonitorName    string `yaml:"clomonitor_name"`
					AnnualReviewDate  string `yaml:"annual_review_date"`
					AnnualReviewURL   string `yaml:"annual_review_url"`
					SummaryTableURL   string `yaml:"summary_table_url"`
					SummaryReleaseRate string `yaml:"summary_release_rate"`
				} `yaml:"items"`
			} `yaml:"subcategories"`
		} `yaml:"landscape"`
	}
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse landscape %s: %w", url, err)
	}

	doc := make(document)
	for _, cat := range raw.Landscape {
		for _, sub := range cat.Subcategories {
			for _, item := range sub.Items {
				if item.ClomonitorName == "" {
					continue
				}
				doc[item.ClomonitorName] = Entry{
					AnnualReviewDate:   item.AnnualReviewDate,
					AnnualReviewURL:    item.AnnualReviewURL,
					SummaryTableURL:    item.SummaryTableURL,
					SummaryReleaseRate: item.SummaryReleaseRate,
				}
			}
		}
	}
	return doc, nil
}
