package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionCleaner is the slice of the credential store the scheduler needs.
type SessionCleaner interface {
	ClearStaleSessions(ctx context.Context, inactiveSince time.Time) (int64, error)
}

// Scheduler periodically clears refresh-token sessions of long-inactive
// accounts. It is constructed and started by main, not by package side
// effects, and stops cleanly on shutdown.
type Scheduler struct {
	store      SessionCleaner
	log        *zap.Logger
	interval   time.Duration
	idleExpiry time.Duration
	stop       chan struct{}
	done       chan struct{}
}

func NewScheduler(store SessionCleaner, log *zap.Logger, interval, idleExpiry time.Duration) *Scheduler {
	return &Scheduler{
		store:      store,
		log:        log,
		interval:   interval,
		idleExpiry: idleExpiry,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cleared, err := s.store.ClearStaleSessions(ctx, time.Now().Add(-s.idleExpiry))
	if err != nil {
		s.log.Error("session cleanup failed", zap.Error(err))
		return
	}

	s.log.Info("session cleanup completed", zap.Int64("accounts_cleared", cleared))
}
