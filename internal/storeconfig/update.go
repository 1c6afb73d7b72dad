package storeconfig

import (
	"github.com/Masterminds/semver/v3"

	"github.com/orionstore/orion/internal/catalog"
)

// UpdateStatus is the result of comparing the running client against the
// versions advertised by the store config.
type UpdateStatus int

const (
	// UpToDate means no newer client is advertised.
	UpToDate UpdateStatus = iota
	// UpdateAvailable means a newer client can be downloaded.
	UpdateAvailable
	// UpdateRequired means the running client is older than the minimum.
	UpdateRequired
)

func (s UpdateStatus) String() string {
	switch s {
	case UpdateAvailable:
		return "available"
	case UpdateRequired:
		return "required"
	default:
		return "up to date"
	}
}

// CheckStoreUpdate compares current against the advertised minimum and latest
// versions. An update is only offered when a download URL is configured.
func CheckStoreUpdate(cfg StoreConfig, current string) UpdateStatus {
	if cfg.StoreDownloadURL == "" {
		return UpToDate
	}
	if cfg.MinStoreVersion != "" && compare(cfg.MinStoreVersion, current) > 0 {
		return UpdateRequired
	}
	if cfg.LatestStoreVersion != "" && compare(cfg.LatestStoreVersion, current) > 0 {
		return UpdateAvailable
	}
	return UpToDate
}

// compare orders two versions with semver precedence when both parse and
// falls back to the lenient catalog comparison otherwise.
func compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return catalog.CompareVersions(a, b)
}
