package resolver

import (
	"fmt"
	"strings"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
)

const bytesPerMB = 1024 * 1024

// Match is a release selected for an app together with the assets kept for it.
type Match struct {
	Release github.Release
	Assets  []github.Asset
}

// MatchRelease walks releases newest first and returns the first one that
// carries an installable asset with the given extension and satisfies the
// keyword.
//
// Without a keyword the first candidate wins with all its installable assets.
// With a keyword, assets whose filename contains it are preferred; when only
// the release name or tag contains it, every installable asset is kept.
func MatchRelease(releases []github.Release, keyword, ext string) (Match, bool) {
	ext = strings.ToLower(ext)
	kw := strings.ToLower(keyword)

	for _, release := range releases {
		installable := installableAssets(release.Assets, ext)
		if len(installable) == 0 {
			continue
		}

		if kw == "" {
			return Match{Release: release, Assets: installable}, true
		}

		var named []github.Asset
		for _, asset := range installable {
			if strings.Contains(strings.ToLower(asset.Name), kw) {
				named = append(named, asset)
			}
		}
		if len(named) > 0 {
			return Match{Release: release, Assets: named}, true
		}

		if strings.Contains(strings.ToLower(release.Name), kw) ||
			strings.Contains(strings.ToLower(release.TagName), kw) {
			return Match{Release: release, Assets: installable}, true
		}
	}
	return Match{}, false
}

func installableAssets(assets []github.Asset, ext string) []github.Asset {
	var out []github.Asset
	for _, asset := range assets {
		if strings.HasSuffix(strings.ToLower(asset.Name), ext) {
			out = append(out, asset)
		}
	}
	return out
}

// ReleaseVersion returns the tag of a release, the calendar date it was
// published when it has no tag, or catalog.UnknownVersion.
func ReleaseVersion(release github.Release) string {
	if release.TagName != "" {
		return release.TagName
	}
	if release.PublishedAt != "" {
		date, _, _ := strings.Cut(release.PublishedAt, "T")
		return date
	}
	return catalog.UnknownVersion
}

// FormatSize renders a byte count as megabytes with one decimal.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/bytesPerMB)
}

// BuildDescriptor returns a copy of app pointing at the matched release. The
// download URL is the most preferred variant; the size is that of the first
// matched asset.
func BuildDescriptor(app catalog.AppDescriptor, match Match) catalog.AppDescriptor {
	out := app.Clone()

	variants := make([]catalog.AppVariant, 0, len(match.Assets))
	for _, asset := range match.Assets {
		variants = append(variants, catalog.AppVariant{
			Arch: catalog.ClassifyArchitecture(asset.Name),
			URL:  asset.BrowserDownloadURL,
		})
	}
	catalog.SortVariants(variants)

	version := ReleaseVersion(match.Release)
	out.Version = version
	out.LatestVersion = version
	out.Variants = variants
	out.DownloadURL = catalog.UnresolvedURL
	if len(variants) > 0 {
		out.DownloadURL = catalog.SanitizeURL(variants[0].URL)
	}
	out.Size = catalog.UnknownSize
	if len(match.Assets) > 0 {
		out.Size = FormatSize(match.Assets[0].Size)
	}
	return out
}

// FallbackDescriptor returns a copy of app pointing at the browsable releases
// page of repo, so an app with a repository always has a usable link.
func FallbackDescriptor(app catalog.AppDescriptor, repo string) catalog.AppDescriptor {
	out := app.Clone()
	out.Version = catalog.ManualVersion
	out.LatestVersion = catalog.UnknownVersion
	out.DownloadURL = catalog.ReleasesPage(repo)
	out.Size = catalog.UnknownSize
	out.Variants = nil
	return out
}
