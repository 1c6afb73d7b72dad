package catalog

import (
	"regexp"
	"sort"
	"strings"
)

var githubPrefix = regexp.MustCompile(`^https?://(www\.)?github\.com/`)

// SanitizeURL returns UnresolvedURL for empty input or input carrying a
// javascript: scheme, and the input unchanged otherwise.
func SanitizeURL(url string) string {
	if url == "" || strings.HasPrefix(strings.ToLower(strings.TrimSpace(url)), "javascript:") {
		return UnresolvedURL
	}
	return url
}

// NormalizeRepository strips an optional GitHub URL prefix and trailing slash,
// yielding the bare owner/repo form used as cache key.
func NormalizeRepository(ref string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimSuffix(githubPrefix.ReplaceAllString(ref, ""), "/")
}

// ReleasesPage returns the browsable releases page of a normalized repository.
func ReleasesPage(repo string) string {
	return "https://github.com/" + repo + "/releases"
}

// ClassifyArchitecture derives the architecture tag from an asset filename.
// Files without an architecture hint are Universal.
func ClassifyArchitecture(filename string) Arch {
	f := strings.ToLower(filename)
	switch {
	case strings.Contains(f, "arm64") || strings.Contains(f, "v8a"):
		return ArchARM64
	case strings.Contains(f, "armeabi") || strings.Contains(f, "v7a"):
		return ArchARMv7
	case strings.Contains(f, "x86_64") || strings.Contains(f, "x64"):
		return ArchX64
	case strings.Contains(f, "x86"):
		return ArchX86
	default:
		return ArchUniversal
	}
}

// ArchitectureScore ranks architectures for default selection, higher first.
func ArchitectureScore(arch Arch) int {
	switch arch {
	case ArchUniversal:
		return 5
	case ArchARM64:
		return 4
	case ArchARMv7:
		return 3
	case ArchX64:
		return 2
	default:
		return 1
	}
}

// SortVariants orders variants by architecture preference so index 0 is the
// recommended default. Variants of equal score keep their relative order.
func SortVariants(variants []AppVariant) {
	sort.SliceStable(variants, func(i, j int) bool {
		return ArchitectureScore(variants[i].Arch) > ArchitectureScore(variants[j].Arch)
	})
}

func hasHTTPScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
