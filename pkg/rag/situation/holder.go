// Package situation holds the process-wide "here and now" facts read at prompt time.
package situation

import (
	"sync/atomic"
	"time"

	"swimcoach-be/pkg/store"
)

// DateLayout renders dates as dd/mm/yyyy.
const DateLayout = "02/01/2006"

// Holder publishes SituationalContext snapshots. Last write wins; readers
// never see a half-updated value.
type Holder struct {
	cur atomic.Pointer[store.SituationalContext]
	now func() time.Time
}

func NewHolder() *Holder {
	h := &Holder{now: time.Now}
	h.cur.Store(&store.SituationalContext{})
	return h
}

// Set replaces location and weather and stamps today's date.
func (h *Holder) Set(location, weather string) store.SituationalContext {
	next := &store.SituationalContext{
		CurrentDate:    h.now().Format(DateLayout),
		LocationName:   location,
		WeatherSummary: weather,
	}
	h.cur.Store(next)
	return *next
}

// Current returns the latest snapshot. An unset date is filled with today,
// so prompts always carry the current date.
func (h *Holder) Current() store.SituationalContext {
	sc := *h.cur.Load()
	if sc.CurrentDate == "" {
		sc.CurrentDate = h.now().Format(DateLayout)
	}
	return sc
}
