package resolver

import (
	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/mirror"
)

// Source is where the releases of an app come from in one cycle.
type Source int

const (
	// SourceNone marks an app that is not resolved this cycle.
	SourceNone Source = iota
	// SourceMirror uses the mirror snapshot.
	SourceMirror
	// SourceLive queues the repository for a release listing.
	SourceLive
	// SourceUnresolved marks an app that needs resolution but has no usable
	// source this cycle.
	SourceUnresolved
)

func (s Source) String() string {
	switch s {
	case SourceMirror:
		return "mirror"
	case SourceLive:
		return "live"
	case SourceUnresolved:
		return "unresolved"
	default:
		return "none"
	}
}

// NeedsResolution reports whether app must be resolved. Apps with a usable
// static link are left alone unless the refresh is forced.
func NeedsResolution(app catalog.AppDescriptor, forced bool) bool {
	return forced || !app.HasUsableStaticURL()
}

// Plan holds the per-app sources of one cycle and the deduplicated list of
// repositories to fetch.
type Plan struct {
	Sources []Source
	Queue   []string
}

// Classify returns the source of a single app. liveAllowed gates release
// listings; it is set for forced refreshes and authenticated clients.
func Classify(app catalog.AppDescriptor, snap mirror.Snapshot, forced, liveAllowed bool) Source {
	if !NeedsResolution(app, forced) {
		return SourceNone
	}

	repo := app.Repository()
	if repo != "" {
		if _, ok := snap.Lookup(repo); ok {
			return SourceMirror
		}
		if liveAllowed {
			return SourceLive
		}
	}
	return SourceUnresolved
}

// PlanSources classifies every app and collects the repositories to fetch in
// first-seen order.
func PlanSources(apps []catalog.AppDescriptor, snap mirror.Snapshot, forced, liveAllowed bool) Plan {
	plan := Plan{Sources: make([]Source, len(apps))}
	seen := make(map[string]bool)

	for i, app := range apps {
		src := Classify(app, snap, forced, liveAllowed)
		plan.Sources[i] = src
		if src != SourceLive {
			continue
		}
		repo := app.Repository()
		if !seen[repo] {
			seen[repo] = true
			plan.Queue = append(plan.Queue, repo)
		}
	}
	return plan
}
