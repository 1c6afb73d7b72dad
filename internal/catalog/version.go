package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var nonVersionChars = regexp.MustCompile(`[^0-9.]`)

// CompareVersions compares two dotted version strings and returns -1, 0 or 1.
//
// The comparison is lenient: a leading "v" and every character other than
// digits and dots are dropped before comparing components numerically, with
// missing trailing components treated as zero. Purely textual versions
// therefore compare as equal.
func CompareVersions(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	ca, cb := cleanVersion(a), cleanVersion(b)
	if ca == cb {
		return 0
	}

	pa := strings.Split(ca, ".")
	pb := strings.Split(cb, ".")
	n := max(len(pa), len(pb))

	for i := 0; i < n; i++ {
		na, nb := component(pa, i), component(pb, i)
		if na > nb {
			return 1
		}
		if na < nb {
			return -1
		}
	}
	return 0
}

// HasNewerVersion reports whether latest is newer than the recorded install.
// An absent install or the InstalledMarker never reports an update.
func HasNewerVersion(installed, latest string) bool {
	if installed == "" || installed == InstalledMarker {
		return false
	}
	return CompareVersions(latest, installed) > 0
}

func cleanVersion(v string) string {
	v = strings.TrimPrefix(strings.ToLower(v), "v")
	return nonVersionChars.ReplaceAllString(v, "")
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return n
}
