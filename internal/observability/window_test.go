package observability

// Alert Window Tests
//
// Verifies the trailing sample buffer: FIFO order, strict-before eviction,
// and that compaction of the backing slice preserves the live samples.

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowAt(base time.Time, offsets ...time.Duration) *alertWindow {
	w := newAlertWindow()
	for i, off := range offsets {
		w.append(windowSample{at: base.Add(off), durationMS: float64(i)})
	}
	return w
}

// TestWindow_EvictBeforeIsStrict verifies a sample exactly at the cutoff
// survives eviction.
func TestWindow_EvictBeforeIsStrict(t *testing.T) {
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	w := windowAt(base, 0, time.Second, 2*time.Second)

	w.evictBefore(base.Add(time.Second))

	require.Equal(t, 2, w.size())
	assert.Equal(t, base.Add(time.Second), w.live()[0].at)
}

// TestWindow_EvictAll verifies a cutoff past the tail empties the window.
func TestWindow_EvictAll(t *testing.T) {
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	w := windowAt(base, 0, time.Second)

	w.evictBefore(base.Add(time.Minute))

	assert.Zero(t, w.size())
	assert.Empty(t, w.live())
}

// TestWindow_CompactionPreservesLive verifies the copy-down compaction keeps
// the surviving samples intact and in order.
func TestWindow_CompactionPreservesLive(t *testing.T) {
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	w := newAlertWindow()
	for i := 0; i < 100; i++ {
		w.append(windowSample{at: base.Add(time.Duration(i) * time.Second), durationMS: float64(i)})
	}

	// Evict 90 of 100: head passes the halfway mark and triggers compaction.
	w.evictBefore(base.Add(90 * time.Second))

	require.Equal(t, 10, w.size())
	for i, s := range w.live() {
		assert.Equal(t, float64(90+i), s.durationMS)
	}

	// The window keeps working after compaction.
	w.append(windowSample{at: base.Add(200 * time.Second), durationMS: 200})
	assert.Equal(t, 11, w.size())
}
