// Package matchmaker turns one-directional likes into matches and keeps the
// conversation of every matched pair consistent.
//
// The record store offers no cross-record transactions and no locks, so
// every write is idempotent and order-independent:
//   - likes are insert-if-absent on the ordered pair,
//   - matching is a one-way flag with a min-monotone date,
//   - the conversation is insert-if-absent on the unordered pair,
//   - channel refs are only written while unset,
//   - messages are rows inserted by id.
//
// State that a crash or a race left half-applied is converged later by the
// Guard (on read) and the Sweeper (periodically).
package matchmaker

import (
	"log/slog"
	"time"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/events"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/utils/retry"
)

// Options tunes the core. Zero values fall back to the defaults.
type Options struct {
	StoreTimeout     time.Duration
	Retry            retry.Policy
	Greeting         string
	MaxMessageLength int
	SweepInterval    time.Duration
	SweepBatch       int
	// Now is the clock; tests pin it.
	Now func() time.Time
}

const (
	defaultMaxMessageLength = 2000
	defaultSweepInterval    = time.Minute
	defaultSweepBatch       = 100
)

// OptionsFromConfig reads the core's settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		StoreTimeout: cfg.Store.Timeout,
		Retry: retry.Policy{
			Attempts:  cfg.Store.RetryAttempts,
			BaseDelay: cfg.Store.RetryBaseDelay,
			MaxDelay:  retry.Default.MaxDelay,
		},
		Greeting:         cfg.Match.Greeting,
		MaxMessageLength: cfg.Match.MaxMessageLength,
		SweepInterval:    cfg.Match.SweepInterval,
		SweepBatch:       cfg.Match.SweepBatch,
	}
}

func (o Options) withDefaults() Options {
	if o.Retry.Attempts == 0 {
		o.Retry = retry.Default
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = defaultMaxMessageLength
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultSweepInterval
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = defaultSweepBatch
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// deps is shared by the components. It holds no mutable state.
type deps struct {
	stores  Stores
	exec    executor
	events  events.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	opts    Options
}

// now is UTC with millisecond precision, the precision the store keeps.
func (d *deps) now() time.Time {
	return d.opts.Now().UTC().Truncate(time.Millisecond)
}

// Matchmaker wires the components together and is the entry point of the
// gRPC layer.
type Matchmaker struct {
	Reconciler   *Reconciler
	Bootstrapper *Bootstrapper
	Appender     *Appender
	Guard        *Guard
	Sweeper      *Sweeper

	*deps
}

// New builds the core. publisher and m may be nil.
func New(stores Stores, opts Options, publisher events.Publisher, m *metrics.Metrics, log *slog.Logger) *Matchmaker {
	opts = opts.withDefaults()
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}

	d := &deps{
		stores:  stores,
		exec:    executor{timeout: opts.StoreTimeout, policy: opts.Retry, metrics: m},
		events:  publisher,
		metrics: m,
		log:     log,
		opts:    opts,
	}

	appender := &Appender{deps: d}
	boot := &Bootstrapper{deps: d, appender: appender}
	rec := &Reconciler{deps: d, boot: boot}
	guard := &Guard{deps: d, reconciler: rec}
	sweeper := &Sweeper{deps: d, guard: guard, log: log.With("subsystem", "sweeper")}

	return &Matchmaker{
		Reconciler:   rec,
		Bootstrapper: boot,
		Appender:     appender,
		Guard:        guard,
		Sweeper:      sweeper,
		deps:         d,
	}
}
