package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

type scheduler struct {
	timers []*fakeTimer
}

func (s *scheduler) afterFunc(d time.Duration, fn func()) Stopper {
	t := &fakeTimer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func newBoard() (*Board, *scheduler) {
	s := &scheduler{}
	return NewBoard(Options{AfterFunc: s.afterFunc}), s
}

func TestShow_Expires(t *testing.T) {
	b, s := newBoard()
	b.Show(KindInstall, "Download started")

	msg, ok := b.Current(KindInstall)
	require.True(t, ok)
	assert.Equal(t, "Download started", msg)
	require.Len(t, s.timers, 1)
	assert.Equal(t, DefaultDuration, s.timers[0].d)

	s.timers[0].fn()
	_, ok = b.Current(KindInstall)
	assert.False(t, ok)
}

func TestShow_ReplacementCancelsPreviousExpiry(t *testing.T) {
	b, s := newBoard()
	b.Show(KindDev, "4 steps away")
	b.Show(KindDev, "3 steps away")

	require.Len(t, s.timers, 2)
	assert.True(t, s.timers[0].stopped)
	assert.Equal(t, DevDuration, s.timers[1].d)

	// A callback that already fired before Stop must not hide the newer message.
	s.timers[0].fn()
	msg, ok := b.Current(KindDev)
	require.True(t, ok)
	assert.Equal(t, "3 steps away", msg)

	s.timers[1].fn()
	_, ok = b.Current(KindDev)
	assert.False(t, ok)
}

func TestSlotsAreIndependent(t *testing.T) {
	b, _ := newBoard()
	b.Show(KindError, "Download link not found")
	b.Show(KindUpdate, "Update started")

	assert.Equal(t, []Toast{
		{Kind: KindError, Message: "Download link not found"},
		{Kind: KindUpdate, Message: "Update started"},
	}, b.Active())

	b.Dismiss(KindError)
	assert.Equal(t, []Toast{{Kind: KindUpdate, Message: "Update started"}}, b.Active())
}

func TestDefaultScheduler(t *testing.T) {
	b := NewBoard(Options{Durations: map[Kind]time.Duration{KindInfo: 10 * time.Millisecond}})
	b.Show(KindInfo, "hello")

	assert.Eventually(t, func() bool {
		_, ok := b.Current(KindInfo)
		return !ok
	}, time.Second, 5*time.Millisecond)
}
