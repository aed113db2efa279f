// Package observability - window.go keeps the trailing sample buffer that
// rolling alert evaluation runs over.
package observability

import "time"

// windowSample is one recorded request inside the alert window.
type windowSample struct {
	at         time.Time
	durationMS float64
	isError    bool
	dbMS       float64
}

// alertWindow is a FIFO, timestamp-ordered sample buffer. Appends are
// amortized O(1); eviction pops from the head and compacts the backing
// slice once the dead prefix dominates, so memory tracks the live window
// rather than total request volume.
type alertWindow struct {
	samples []windowSample
	head    int
}

func newAlertWindow() *alertWindow {
	return &alertWindow{}
}

// append adds one sample at the tail.
func (w *alertWindow) append(s windowSample) {
	w.samples = append(w.samples, s)
}

// evictBefore drops every sample whose timestamp is strictly before cutoff.
// O(k) in the evicted count.
func (w *alertWindow) evictBefore(cutoff time.Time) {
	for w.head < len(w.samples) && w.samples[w.head].at.Before(cutoff) {
		w.head++
	}
	if w.head == len(w.samples) {
		w.samples = w.samples[:0]
		w.head = 0
		return
	}
	if w.head > len(w.samples)/2 {
		n := copy(w.samples, w.samples[w.head:])
		w.samples = w.samples[:n]
		w.head = 0
	}
}

// size reports the live sample count.
func (w *alertWindow) size() int {
	return len(w.samples) - w.head
}

// live returns the in-window samples. The slice aliases the buffer and is
// only valid until the next append or eviction.
func (w *alertWindow) live() []windowSample {
	return w.samples[w.head:]
}
