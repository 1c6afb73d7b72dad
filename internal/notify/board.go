// Package notify manages transient user facing messages. Each kind of
// message occupies one slot; showing a new message replaces the current one
// and cancels its expiry.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Kind identifies a message slot.
type Kind string

const (
	KindInfo    Kind = "info"
	KindInstall Kind = "install"
	KindUpdate  Kind = "update"
	KindError   Kind = "error"
	KindDev     Kind = "dev"
)

// DefaultDuration is how long a message stays visible.
const DefaultDuration = 3 * time.Second

// DevDuration is the visibility of developer mode messages.
const DevDuration = 2 * time.Second

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// Toast is a visible message.
type Toast struct {
	Kind    Kind
	Message string
}

// Options configures a Board.
type Options struct {
	// Durations overrides the visibility per kind.
	Durations map[Kind]time.Duration

	// AfterFunc schedules expiry callbacks. Defaults to time.AfterFunc.
	AfterFunc func(time.Duration, func()) Stopper

	Logger hclog.Logger
}

type slot struct {
	message string
	gen     uint64
	timer   Stopper
}

// Board holds the visible messages.
type Board struct {
	mu        sync.Mutex
	slots     map[Kind]*slot
	durations map[Kind]time.Duration
	afterFunc func(time.Duration, func()) Stopper
	logger    hclog.Logger
}

// NewBoard creates an empty Board.
func NewBoard(opts Options) *Board {
	b := &Board{
		slots: make(map[Kind]*slot),
		durations: map[Kind]time.Duration{
			KindDev: DevDuration,
		},
		afterFunc: opts.AfterFunc,
		logger:    opts.Logger,
	}
	for k, d := range opts.Durations {
		b.durations[k] = d
	}
	if b.afterFunc == nil {
		b.afterFunc = func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		}
	}
	if b.logger == nil {
		b.logger = hclog.NewNullLogger()
	}
	return b
}

func (b *Board) duration(kind Kind) time.Duration {
	if d, ok := b.durations[kind]; ok {
		return d
	}
	return DefaultDuration
}

// Show displays msg in the slot of kind, replacing and cancelling any message
// already shown there.
func (b *Board) Show(kind Kind, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[kind]
	if !ok {
		s = &slot{}
		b.slots[kind] = s
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	s.gen++
	s.message = msg
	gen := s.gen
	s.timer = b.afterFunc(b.duration(kind), func() {
		b.expire(kind, gen)
	})

	b.logger.Debug("toast", "kind", kind, "message", msg)
}

// expire hides the message of kind if it is still the one scheduled with gen.
// A callback that lost the race against a newer Show is a no-op.
func (b *Board) expire(kind Kind, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[kind]
	if !ok || s.gen != gen {
		return
	}
	delete(b.slots, kind)
}

// Dismiss hides the message of kind immediately.
func (b *Board) Dismiss(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.slots[kind]; ok {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(b.slots, kind)
	}
}

// Current returns the message shown for kind.
func (b *Board) Current(kind Kind) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[kind]
	if !ok {
		return "", false
	}
	return s.message, true
}

// Active returns the visible messages ordered by kind.
func (b *Board) Active() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()

	toasts := make([]Toast, 0, len(b.slots))
	for kind, s := range b.slots {
		toasts = append(toasts, Toast{Kind: kind, Message: s.message})
	}
	sort.Slice(toasts, func(i, j int) bool { return toasts[i].Kind < toasts[j].Kind })
	return toasts
}
