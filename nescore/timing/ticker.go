package timing

import "time"

// TickerLimiter uses time.Ticker for simple, consistent frame timing.
// Less accurate than AdaptiveLimiter but simpler and good enough for most cases.
type TickerLimiter struct {
	ticker *time.Ticker
	frame  time.Duration
}

func NewTickerLimiter(region Region) *TickerLimiter {
	frame := region.FrameDuration()
	return &TickerLimiter{
		ticker: time.NewTicker(frame),
		frame:  frame,
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.frame)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
