package datamanager

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/mirror"
	"github.com/orionstore/orion/internal/security"
)

// Report collects the findings of a validation.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were found.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a catalog, and the mirror when snap is not nil.
//
// Apps sharing a repository are told apart by their release keyword, and the
// first app whose keyword matches an asset claims it. Keywords contained in
// one another therefore make the outcome depend on catalog order and are
// reported.
func Validate(c *Catalog, snap mirror.Snapshot) *Report {
	r := &Report{}
	if len(c.Raw) == 0 {
		r.warnf("catalog is empty")
	}

	ids := make(map[string]int)
	byRepo := make(map[string][]int)

	for i, raw := range c.Raw {
		app := c.Apps[i]
		label := fmt.Sprintf("entry %d", i)

		id := rawString(raw, "id")
		if id == "" {
			r.errorf("%s: id is required", label)
		} else {
			label = fmt.Sprintf("app '%s'", id)
			if prev, dup := ids[id]; dup {
				r.errorf("%s: duplicate id (first used by entry %d)", label, prev)
			} else {
				ids[id] = i
			}
		}

		if rawString(raw, "name") == "" {
			r.warnf("%s: name is empty", label)
		}
		if p := rawString(raw, "platform"); p != "" {
			if _, ok := catalog.LookupPlatform(p); !ok {
				r.warnf("%s: unknown platform %q, clients use %s", label, p, app.Platform)
			}
		}
		if cat := rawString(raw, "category"); cat != "" {
			if _, ok := catalog.LookupCategory(cat); !ok {
				r.warnf("%s: unknown category %q, clients use %s", label, cat, app.Category)
			}
		}
		if app.Icon != "" {
			if err := security.ValidateHTTPURL(app.Icon); err != nil {
				r.warnf("%s: icon: %v", label, err)
			}
		}

		repo := app.Repository()
		if app.GitHubRepo != "" {
			if _, _, err := github.ParseRepository(repo); err != nil {
				r.errorf("%s: githubRepo: %v", label, err)
				repo = ""
			}
		}
		if repo != "" {
			byRepo[repo] = append(byRepo[repo], i)
		}

		link := rawString(raw, "downloadUrl")
		switch {
		case link == "" || link == catalog.UnresolvedURL:
			if repo == "" {
				r.errorf("%s: no download link and no repository to resolve one", label)
			} else if snap != nil {
				if _, ok := snap.Lookup(repo); !ok {
					r.warnf("%s: repository %s is not in the mirror and resolves only with a token", label, repo)
				}
			}
		case !app.HasUsableStaticURL():
			r.errorf("%s: download link %q is not usable", label, link)
		default:
			if err := security.ValidateHTTPURL(app.DownloadURL); err != nil {
				r.warnf("%s: download link: %v", label, err)
			}
		}
	}

	for repo, entries := range byRepo {
		checkKeywords(r, c, repo, entries)
	}

	if snap != nil {
		for repo := range snap {
			if _, ok := byRepo[repo]; !ok {
				r.warnf("mirror: repository %s is not referenced by the catalog", repo)
			}
		}
	}

	sort.Strings(r.Errors)
	sort.Strings(r.Warnings)
	return r
}

// checkKeywords reports apps of one repository that cannot be told apart.
func checkKeywords(r *Report, c *Catalog, repo string, entries []int) {
	if len(entries) < 2 {
		return
	}
	for a := 0; a < len(entries); a++ {
		for b := a + 1; b < len(entries); b++ {
			first, second := c.Apps[entries[a]], c.Apps[entries[b]]
			if first.Platform != second.Platform {
				continue
			}
			kwA := strings.ToLower(first.ReleaseKeyword)
			kwB := strings.ToLower(second.ReleaseKeyword)
			switch {
			case kwA == "" || kwB == "":
				r.warnf("repository %s: apps '%s' and '%s' share it but one has no release keyword", repo, first.ID, second.ID)
			case kwA == kwB:
				r.errorf("repository %s: apps '%s' and '%s' use the same release keyword %q", repo, first.ID, second.ID, kwA)
			case strings.Contains(kwA, kwB) || strings.Contains(kwB, kwA):
				r.warnf("repository %s: release keywords %q ('%s') and %q ('%s') overlap", repo, kwA, first.ID, kwB, second.ID)
			}
		}
	}
}

// rawString returns a string or number field as written.
func rawString(raw catalog.RawApp, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}
