package tickrt

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

// Option configures a [Runtime] during [New].
type Option interface {
	applyOption(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) applyOption(c *config) error { return f(c) }

type config struct {
	logger    *logiface.Logger[logiface.Event]
	tick      TickSource
	period    time.Duration
	runner    TaskRunner
	warnRates map[time.Duration]int
}

// WithLogger sets the structured logger used for diagnostics. A nil logger
// disables logging (builders on a nil logger are no-ops).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *config) error {
		c.logger = logger
		return nil
	})
}

// WithTickSource sets the tick source that drives timer expiry. The default
// is a [TickerSource] backed by [time.Ticker].
func WithTickSource(tick TickSource) Option {
	return optionFunc(func(c *config) error {
		if tick == nil {
			return fmt.Errorf("tickrt: nil tick source")
		}
		c.tick = tick
		return nil
	})
}

// WithTickPeriod sets the tick granularity. Timer delays are rounded up to
// whole multiples of this period. The default is [DefaultTickPeriod].
func WithTickPeriod(period time.Duration) Option {
	return optionFunc(func(c *config) error {
		if period <= 0 {
			return fmt.Errorf("tickrt: tick period must be positive, got %v", period)
		}
		c.period = period
		return nil
	})
}

// WithTaskRunner redirects work-pending notifications to a host-provided
// runner. When set, the host owns the drain loop ([Runtime.Run] refuses to
// start) and must call [Runtime.DrainOne] itself.
func WithTaskRunner(runner TaskRunner) Option {
	return optionFunc(func(c *config) error {
		if runner == nil {
			return fmt.Errorf("tickrt: nil task runner")
		}
		c.runner = runner
		return nil
	})
}

// WithWarningRates bounds how often overload warnings are emitted, per
// category, as a map of window duration to permitted count. An explicit nil
// or empty map removes the limit, leaving only the per-episode latch.
//
// Rate maps must satisfy [catrate.NewLimiter]'s requirements (positive
// values, strictly increasing counts and strictly decreasing event rates
// across longer windows); invalid maps panic during [New].
func WithWarningRates(rates map[time.Duration]int) Option {
	return optionFunc(func(c *config) error {
		c.warnRates = rates
		return nil
	})
}

func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		period: DefaultTickPeriod,
		warnRates: map[time.Duration]int{
			time.Second: 1,
			time.Minute: 6,
		},
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.applyOption(c); err != nil {
			return nil, err
		}
	}
	if c.tick == nil {
		c.tick = NewTickerSource()
	}
	return c, nil
}
