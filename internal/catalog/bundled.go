package catalog

import (
	_ "embed"
	"strings"
)

//go:embed bundled.json
var bundledJSON []byte

// Bundled returns the catalog shipped with the binary. It is used when remote
// mode is off or the remote catalog cannot be fetched.
func Bundled() []AppDescriptor {
	apps, err := DecodeCatalog(bundledJSON)
	if err != nil {
		return []AppDescriptor{}
	}
	return apps
}

// Query narrows a catalog for display.
type Query struct {
	Platform Platform
	Category Category
	Text     string
}

// Filter returns the apps matching every non-empty criterion of q. Text is
// matched case-insensitively against name and description.
func Filter(apps []AppDescriptor, q Query) []AppDescriptor {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]AppDescriptor, 0, len(apps))
	for _, app := range apps {
		if q.Platform != "" && app.Platform != q.Platform {
			continue
		}
		if q.Category != "" && app.Category != q.Category {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(app.Name), text) &&
			!strings.Contains(strings.ToLower(app.Description), text) {
			continue
		}
		out = append(out, app)
	}
	return out
}

// Find returns the app with the given id.
func Find(apps []AppDescriptor, id string) (AppDescriptor, bool) {
	for _, app := range apps {
		if app.ID == id {
			return app, true
		}
	}
	return AppDescriptor{}, false
}
