// Package catalog defines the app catalog model and the pure helpers used to
// clean, classify and compare its entries.
package catalog

import "strings"

// Category groups catalog entries for browsing.
type Category string

const (
	CategoryUtility     Category = "Utility"
	CategoryPrivacy     Category = "Privacy"
	CategoryMedia       Category = "Media"
	CategoryDevelopment Category = "Development"
	CategorySocial      Category = "Social"
	CategoryEducational Category = "Educational"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryUtility,
	CategoryPrivacy,
	CategoryMedia,
	CategoryDevelopment,
	CategorySocial,
	CategoryEducational,
}

// LookupCategory returns the category named s, ignoring case.
func LookupCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// Platform is the operating environment an app targets.
type Platform string

const (
	PlatformAndroid Platform = "Android"
	PlatformPC      Platform = "PC"
)

// LookupPlatform returns the platform named s, ignoring case.
func LookupPlatform(s string) (Platform, bool) {
	for _, p := range []Platform{PlatformAndroid, PlatformPC} {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

// InstallExtension returns the file extension of an installable package for
// the platform.
func (p Platform) InstallExtension() string {
	if p == PlatformPC {
		return ".exe"
	}
	return ".apk"
}

// Arch is a CPU architecture tag derived from a release asset filename.
type Arch string

const (
	ArchARM64     Arch = "ARM64"
	ArchARMv7     Arch = "ARMv7"
	ArchX64       Arch = "x64"
	ArchX86       Arch = "x86"
	ArchUniversal Arch = "Universal"
)

// Sentinel values written into descriptors.
const (
	// UnresolvedURL marks a download link that has not been resolved yet.
	UnresolvedURL = "#"

	// ManualVersion marks a descriptor that points at a releases page
	// rather than a concrete artifact.
	ManualVersion = "View on GitHub"

	// UnknownVersion is used when a release carries neither tag nor date.
	UnknownVersion = "Unknown"

	// UnknownSize is used when the artifact size is not known.
	UnknownSize = "?"

	// InstalledMarker records an install whose version is not known.
	InstalledMarker = "Installed"

	// DefaultVersion is assigned to entries that declare no version.
	DefaultVersion = "Latest"
)

// AppVariant is one architecture specific download of an app.
type AppVariant struct {
	Arch Arch   `json:"arch"`
	URL  string `json:"url"`
}

// AppDescriptor is one entry of the catalog.
type AppDescriptor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Author         string       `json:"author"`
	Category       Category     `json:"category"`
	Platform       Platform     `json:"platform"`
	Icon           string       `json:"icon"`
	Version        string       `json:"version"`
	LatestVersion  string       `json:"latestVersion"`
	DownloadURL    string       `json:"downloadUrl"`
	Size           string       `json:"size"`
	Screenshots    []string     `json:"screenshots"`
	Variants       []AppVariant `json:"variants,omitempty"`
	RepoURL        string       `json:"repoUrl,omitempty"`
	GitHubRepo     string       `json:"githubRepo,omitempty"`
	ReleaseKeyword string       `json:"releaseKeyword,omitempty"`
	PackageName    string       `json:"packageName,omitempty"`
}

// Repository returns the normalized owner/repo form of the app's repository
// reference, or an empty string when it has none.
func (a AppDescriptor) Repository() string {
	return NormalizeRepository(a.GitHubRepo)
}

// HasUsableStaticURL reports whether the app already carries a download link
// that can be used without resolution.
func (a AppDescriptor) HasUsableStaticURL() bool {
	u := a.DownloadURL
	return u != UnresolvedURL && len(u) > 5 && hasHTTPScheme(u)
}
