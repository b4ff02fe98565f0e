package timeutil

import "time"

var nowFunc = time.Now

// Now returns the current time. Spin deadlines, watch dates and the
// daily pick all read the clock through it so tests can pin a moment.
func Now() time.Time {
	return nowFunc()
}

// SetNowFunc overrides the clock used by Now. Passing nil restores the
// real one.
func SetNowFunc(fn func() time.Time) {
	if fn == nil {
		nowFunc = time.Now
		return
	}
	nowFunc = fn
}
