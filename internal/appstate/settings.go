package appstate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/syncer"
)

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDusk  Theme = "dusk"
	ThemeDark  Theme = "dark"
)

// Next returns the theme that follows t in the light, dusk, dark cycle.
func (t Theme) Next() Theme {
	switch t {
	case ThemeLight:
		return ThemeDusk
	case ThemeDusk:
		return ThemeDark
	default:
		return ThemeLight
	}
}

// ParseTheme returns the theme named s.
func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDusk, ThemeDark:
		return t, true
	default:
		return "", false
	}
}

// DefaultRefreshDelay separates a token change from the refresh it triggers.
const DefaultRefreshDelay = 500 * time.Millisecond

// Refresher runs a catalog sync. *syncer.Syncer implements it.
type Refresher interface {
	Sync(ctx context.Context, forced bool) (syncer.Outcome, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, forced bool) (syncer.Outcome, error)

// Sync calls f(ctx, forced).
func (f RefresherFunc) Sync(ctx context.Context, forced bool) (syncer.Outcome, error) {
	return f(ctx, forced)
}

// Settings are the persisted user preferences. It satisfies syncer.Settings.
type Settings struct {
	store        *kvstore.Store
	refresher    Refresher
	refreshDelay time.Duration
	logger       hclog.Logger
}

// Theme returns the stored theme, light by default.
func (s *Settings) Theme() Theme {
	v, _ := s.store.Get(kvstore.KeyTheme)
	if t, ok := ParseTheme(strings.Trim(v, `"`)); ok {
		return t
	}
	return ThemeLight
}

// SetTheme stores t.
func (s *Settings) SetTheme(t Theme) {
	s.store.Set(kvstore.KeyTheme, string(t))
}

// CycleTheme advances to the next theme and returns it.
func (s *Settings) CycleTheme() Theme {
	next := s.Theme().Next()
	s.SetTheme(next)
	return next
}

// Token returns the API token, or an empty string.
func (s *Settings) Token() string {
	v, _ := s.store.Get(kvstore.KeyToken)
	return v
}

// SetToken stores token, removing it when empty, and schedules a forced
// refresh so the new quota applies at once. The channel receives the result
// of that refresh; it receives nil immediately when no refresher is set.
func (s *Settings) SetToken(token string) <-chan error {
	token = strings.TrimSpace(token)
	if token == "" {
		s.store.Remove(kvstore.KeyToken)
	} else {
		s.store.Set(kvstore.KeyToken, token)
	}

	done := make(chan error, 1)
	if s.refresher == nil {
		done <- nil
		return done
	}

	s.logger.Debug("token changed, scheduling refresh", "delay", s.refreshDelay)
	time.AfterFunc(s.refreshDelay, func() {
		_, err := s.refresher.Sync(context.Background(), true)
		done <- err
	})
	return done
}

// RemoteMode reports whether remote sources are used. It is on by default.
func (s *Settings) RemoteMode() bool {
	return s.flag(kvstore.KeyRemoteMode, true)
}

// SetRemoteMode stores the remote mode.
func (s *Settings) SetRemoteMode(on bool) {
	s.store.Set(kvstore.KeyRemoteMode, strconv.FormatBool(on))
}

// ToggleRemoteMode flips the remote mode and returns the new value.
func (s *Settings) ToggleRemoteMode() bool {
	on := !s.RemoteMode()
	s.SetRemoteMode(on)
	return on
}

// DevUnlocked reports whether developer mode is unlocked.
func (s *Settings) DevUnlocked() bool {
	return s.flag(kvstore.KeyDevUnlocked, false)
}

// Legend reports whether the easter egg was found.
func (s *Settings) Legend() bool {
	return s.flag(kvstore.KeyLegend, false)
}

func (s *Settings) flag(key string, def bool) bool {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.Trim(v, `"`))
	if err != nil {
		return def
	}
	return b
}

var _ syncer.Settings = (*Settings)(nil)
