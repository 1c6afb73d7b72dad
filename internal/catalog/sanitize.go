package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/gofrs/uuid/v5"
)

// RawApp is an untrusted catalog record as found in remote or persisted JSON.
type RawApp map[string]json.RawMessage

// DecodeCatalog parses a JSON array of untrusted catalog records and sanitizes
// every element. Elements that are not JSON objects are skipped. An error is
// returned only when the document itself is not a JSON array.
func DecodeCatalog(data []byte) ([]AppDescriptor, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	apps := make([]AppDescriptor, 0, len(elems))
	for _, elem := range elems {
		var raw RawApp
		if err := json.Unmarshal(elem, &raw); err != nil || raw == nil {
			continue
		}
		apps = append(apps, Sanitize(raw))
	}
	return apps, nil
}

// Sanitize coerces an untrusted record into an AppDescriptor. Missing or
// mistyped fields fall back to defaults; URLs are passed through SanitizeURL.
func Sanitize(raw RawApp) AppDescriptor {
	app := AppDescriptor{
		ID:             raw.str("id", ""),
		Name:           raw.str("name", "Unknown App"),
		Description:    raw.str("description", ""),
		Author:         raw.str("author", "Unknown"),
		Category:       parseCategory(raw.str("category", "")),
		Platform:       parsePlatform(raw.str("platform", "")),
		Icon:           SanitizeURL(raw.str("icon", "")),
		Version:        raw.str("version", DefaultVersion),
		LatestVersion:  raw.str("latestVersion", DefaultVersion),
		DownloadURL:    SanitizeURL(raw.str("downloadUrl", UnresolvedURL)),
		Size:           raw.str("size", UnknownSize),
		RepoURL:        raw.str("repoUrl", ""),
		GitHubRepo:     raw.str("githubRepo", ""),
		ReleaseKeyword: raw.str("releaseKeyword", ""),
		PackageName:    raw.str("packageName", ""),
		Screenshots:    []string{},
	}
	if app.ID == "" {
		app.ID = uuid.Must(uuid.NewV4()).String()
	}

	var shots []json.RawMessage
	if v, ok := raw["screenshots"]; ok && json.Unmarshal(v, &shots) == nil {
		for _, s := range shots {
			var str string
			if json.Unmarshal(s, &str) == nil {
				app.Screenshots = append(app.Screenshots, SanitizeURL(str))
			}
		}
	}

	var variants []AppVariant
	if v, ok := raw["variants"]; ok && json.Unmarshal(v, &variants) == nil {
		for _, variant := range variants {
			if variant.URL == "" {
				continue
			}
			variant.URL = SanitizeURL(variant.URL)
			app.Variants = append(app.Variants, variant)
		}
	}

	return app
}

// Clone returns a copy of the app whose slices do not alias the original.
func (a AppDescriptor) Clone() AppDescriptor {
	out := a
	out.Screenshots = slices.Clone(a.Screenshots)
	out.Variants = slices.Clone(a.Variants)
	return out
}

// str returns the field as a string when it holds a non-empty string or a
// number, and def otherwise.
func (r RawApp) str(key, def string) string {
	v, ok := r[key]
	if !ok {
		return def
	}
	s, ok := coerceString(v)
	if !ok || s == "" {
		return def
	}
	return s
}

func coerceString(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", false
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if _, err := strconv.ParseFloat(string(v), 64); err != nil {
			return "", false
		}
		return string(v), true
	default:
		return "", false
	}
}

func parseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryUtility
}

func parsePlatform(s string) Platform {
	if Platform(s) == PlatformPC {
		return PlatformPC
	}
	return PlatformAndroid
}
