package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatroom-api/internal/storage"
)

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Interval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"15s"`
	Threshold time.Duration `env:"STALE_THRESHOLD" envDefault:"10s"`
}

// Sweeper periodically evicts participants whose last heartbeat is older than
// the staleness threshold and records a departure notice for each eviction.
// It talks to the room only through the shared store, never through handler state.
type Sweeper struct {
	logger    *zap.SugaredLogger
	store     *storage.Store
	interval  time.Duration
	threshold time.Duration
}

// New returns a Sweeper ticking every interval and evicting participants
// silent for longer than threshold
func New(logger *zap.SugaredLogger, store *storage.Store, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{
		logger:    logger,
		store:     store,
		interval:  interval,
		threshold: threshold,
	}
}

// Run blocks until ctx is canceled, sweeping once per interval. The sweep runs
// inline in the ticker loop, so ticks never overlap: a tick firing during a
// slow sweep is delivered late and coalesced by the ticker, which rules out
// duplicate departure messages for the same participant.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Infof("Starting presence sweeper (interval %s, staleness threshold %s)", s.interval, s.threshold)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Presence sweeper is stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep snapshots stale participants, evicts each with a conditional delete
// (a concurrent heartbeat that lands first cancels the eviction) and appends
// departure messages for the ones actually removed. Eviction failures are
// isolated per participant.
func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UnixNano()/int64(time.Millisecond) - s.threshold.Milliseconds()

	stale, err := s.store.StaleParticipants(ctx, cutoff)
	if err != nil {
		s.logger.Errorf("listing stale participants: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	evicted := make([]string, 0, len(stale))
	for _, name := range stale {
		ok, err := s.store.EvictParticipant(ctx, name, cutoff)
		if err != nil {
			s.logger.Errorf("evicting participant (%s): %v", name, err)
			continue
		}
		if ok {
			evicted = append(evicted, name)
		}
	}

	if len(evicted) == 0 {
		return
	}

	if err := s.store.CreateDepartureMessages(ctx, evicted); err != nil {
		s.logger.Errorf("recording departure messages: %v", err)
		return
	}

	s.logger.Infof("Evicted %d stale participants", len(evicted))
}
