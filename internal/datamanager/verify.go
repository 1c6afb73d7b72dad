package datamanager

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/version"
)

// DefaultVerifyTimeout bounds each link check.
const DefaultVerifyTimeout = 30 * time.Second

// LinkStatus is the outcome of checking one published link.
type LinkStatus struct {
	App       string
	URL       string
	Available bool
	Reason    string
}

// Verifier checks that published download links answer.
type Verifier struct {
	client      *http.Client
	concurrency int
}

// NewVerifier creates a Verifier. A nil client uses one with
// DefaultVerifyTimeout.
func NewVerifier(client *http.Client, concurrency int) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: DefaultVerifyTimeout}
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Verifier{client: client, concurrency: concurrency}
}

// VerifyURL checks that url answers a HEAD request with a success status.
func (v *Verifier) VerifyURL(ctx context.Context, url string) (available bool, reason string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Sprintf("invalid request: %v", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return true, ""
	}
	return false, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// VerifyCatalog checks the static download link and variant links of every
// app. Apps that are resolved from releases are skipped. Results are ordered
// by app and URL.
func (v *Verifier) VerifyCatalog(ctx context.Context, apps []catalog.AppDescriptor) []LinkStatus {
	type link struct{ app, url string }
	var links []link
	for _, app := range apps {
		if !app.HasUsableStaticURL() {
			continue
		}
		links = append(links, link{app.ID, app.DownloadURL})
		for _, variant := range app.Variants {
			if variant.URL != app.DownloadURL {
				links = append(links, link{app.ID, variant.URL})
			}
		}
	}

	var mu sync.Mutex
	results := make([]LinkStatus, 0, len(links))
	var eg errgroup.Group
	eg.SetLimit(v.concurrency)
	for _, l := range links {
		eg.Go(func() error {
			ok, reason := v.VerifyURL(ctx, l.url)
			mu.Lock()
			results = append(results, LinkStatus{App: l.app, URL: l.url, Available: ok, Reason: reason})
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].App != results[j].App {
			return results[i].App < results[j].App
		}
		return results[i].URL < results[j].URL
	})
	return results
}
