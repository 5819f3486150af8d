package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LeaderLoop periodically mints the open block and publishes its hash under
// the configured mutable name — spec.md §4.8. Mint and publish failures are
// logged and retried on the next tick; neither is fatal to the loop.
type LeaderLoop struct {
	tracker   *Tracker
	publisher *Publisher
	interval  time.Duration
	log       *logrus.Entry
}

// NewLeaderLoop wires a LeaderLoop over tracker and publisher, minting every
// interval (the configured mining_interval_ms).
func NewLeaderLoop(tracker *Tracker, publisher *Publisher, interval time.Duration, log *logrus.Logger) *LeaderLoop {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LeaderLoop{
		tracker:   tracker,
		publisher: publisher,
		interval:  interval,
		log:       log.WithField("component", "leader_loop"),
	}
}

// Run blocks until ctx is cancelled, minting and publishing on each tick.
func (l *LeaderLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *LeaderLoop) tick(ctx context.Context) {
	hash, err := l.tracker.MintCurrentBlock(ctx)
	if err != nil {
		l.log.WithError(err).Warn("mint failed")
		return
	}
	if err := l.publisher.Publish(ctx, hash); err != nil {
		l.log.WithError(err).WithField("hash", hash).Warn("publish failed")
		return
	}
	l.log.WithField("hash", hash).Info("minted and published block")
}
