// Package alarm is the in-process timer facility behind the scheduler: alerts
// are registered under an identifier, kept in a fire-time heap, and delivered
// by a ticker pump. It holds no durable state: after a restart the recovery
// pass repopulates it from the obligation rows.
package alarm

import (
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"paydue/schedule"
)

var clk = clock.New()

type Service struct {
	tick   time.Duration
	logger *zap.SugaredLogger

	mu    sync.Mutex
	queue *alertQueue

	done chan struct{}
}

func NewService(tick time.Duration, logger *zap.SugaredLogger) *Service {
	return &Service{
		tick:   tick,
		logger: logger,
		queue:  newAlertQueue(),
		done:   make(chan struct{}),
	}
}

// ScheduleAt registers the alert to fire at the given instant. Scheduling an
// identifier that is already pending replaces it.
func (s *Service) ScheduleAt(id int64, at time.Time, p schedule.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Replace(&pendingAlert{id: id, at: at, payload: p})
	return nil
}

// Cancel drops the pending alert with the given identifier. Cancelling an
// identifier that was never scheduled is a no-op.
func (s *Service) Cancel(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Delete(id)
	return nil
}

// Run starts the pump: every tick, alerts whose fire time has arrived are
// handed to fire, earliest first. Fire events are delivered on the pump
// goroutine concurrently with ScheduleAt/Cancel callers.
func (s *Service) Run(fire func(schedule.Payload)) {
	ticker := time.NewTicker(s.tick)

	s.logger.Infof("alarm pump running, tick %v", s.tick)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.fireDue(clk.Now(), fire)
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.done)
}

// fireDue pops and delivers every alert due at or before now.
func (s *Service) fireDue(now time.Time, fire func(schedule.Payload)) {
	for {
		s.mu.Lock()
		head := s.queue.Peek()
		if head == nil || now.Before(head.at) {
			s.mu.Unlock()
			return
		}
		s.queue.Delete(head.id)
		s.mu.Unlock()

		fire(head.payload)
	}
}
