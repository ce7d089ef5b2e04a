package session

import (
	"context"
	"sync/atomic"
	"time"

	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
)

// DefaultRestartDelay keeps a finished run on screen before the next one.
const DefaultRestartDelay = 3 * time.Second

// Runner plays runs back to back, building a fresh Session from the same
// options each time one finishes. Hosts read the live run via Current.
type Runner struct {
	opts    Options
	delay   time.Duration
	current atomic.Pointer[Session]
	runs    atomic.Uint64
	log     *logrus.Entry
}

// NewRunner builds the first session immediately so Current is never nil.
func NewRunner(opts Options, restartDelay time.Duration) (*Runner, error) {
	r := &Runner{opts: opts, delay: restartDelay, log: logging.For("session")}
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	r.current.Store(s)
	return r, nil
}

// Current returns the session being played.
func (r *Runner) Current() *Session { return r.current.Load() }

// Runs counts finished runs.
func (r *Runner) Runs() uint64 { return r.runs.Load() }

// Run starts the current session and replaces it whenever it finishes,
// until ctx is cancelled. Replay options play once and return.
func (r *Runner) Run(ctx context.Context) error {
	for {
		s := r.Current()
		if err := s.Start(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-s.Done():
		}
		if !s.Finished() {
			// stopped from outside
			return nil
		}
		n := r.runs.Add(1)
		view := s.View()
		r.log.WithFields(logrus.Fields{
			"run":   n,
			"seed":  s.Seed(),
			"level": view.Player.Level,
			"kills": view.Totals.Kills,
		}).Info("🔁 Run complete")

		if r.opts.Replay != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.delay):
		}

		next, err := New(r.opts)
		if err != nil {
			return err
		}
		r.current.Store(next)
	}
}
