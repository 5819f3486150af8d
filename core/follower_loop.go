package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// FollowerLoop periodically resolves the mutable name, loads the candidate
// block it points at, and offers it to the Tracker for adoption —
// spec.md §4.8. An unset name is a soft case (no publisher yet); every
// other failure is logged and retried on the next tick.
type FollowerLoop struct {
	tracker  *Tracker
	storage  *Storage
	client   DAGClient
	name     string
	interval time.Duration
	log      *logrus.Entry
}

// NewFollowerLoop wires a FollowerLoop over tracker and client, pulling
// every interval (the configured pulling_interval_ms) against the
// configured mutable name.
func NewFollowerLoop(tracker *Tracker, storage *Storage, client DAGClient, name string, interval time.Duration, log *logrus.Logger) *FollowerLoop {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FollowerLoop{
		tracker:  tracker,
		storage:  storage,
		client:   client,
		name:     name,
		interval: interval,
		log:      log.WithField("component", "follower_loop"),
	}
}

// Run blocks until ctx is cancelled, pulling and verifying on each tick.
func (f *FollowerLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *FollowerLoop) tick(ctx context.Context) {
	root, err := Resolve(ctx, f.client, f.name)
	if err != nil {
		if IsNotFound(err) {
			f.log.Debug("no published block yet")
			return
		}
		f.log.WithError(err).Warn("resolve failed")
		return
	}

	tree, err := f.storage.GetAll(ctx, root, "")
	if err != nil {
		f.log.WithError(err).WithField("root", root).Warn("fetch candidate failed")
		return
	}
	candidate, err := DeserializeBlock(tree)
	if err != nil {
		f.log.WithError(err).WithField("root", root).Warn("deserialize candidate failed")
		return
	}

	if err := f.tracker.AdoptBlock(ctx, candidate); err != nil {
		f.log.WithError(err).WithField("root", root).Warn("candidate rejected")
		return
	}
	f.log.WithField("root", root).Info("adopted candidate block")
}
