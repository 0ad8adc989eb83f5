package sim

import "time"

// Clock supplies wall-clock time to the tracker.
type Clock interface {
	Now() time.Time
}

// Scheduler paces ticks. The value received is ignored; the tracker asks
// its Clock for the time.
type Scheduler interface {
	Ticks() <-chan time.Time
	Stop()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type tickerScheduler struct{ t *time.Ticker }

// NewTickerScheduler ticks every d.
func NewTickerScheduler(d time.Duration) Scheduler {
	return &tickerScheduler{t: time.NewTicker(d)}
}

func (s *tickerScheduler) Ticks() <-chan time.Time { return s.t.C }
func (s *tickerScheduler) Stop()                   { s.t.Stop() }

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
