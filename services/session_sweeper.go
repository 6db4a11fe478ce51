package services

import (
	"time"

	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// SessionSweeper expires guest sessions whose heartbeat has gone quiet.
// Expiry is the only cancellation-like mechanism in the occupancy protocol.
type SessionSweeper struct {
	Coordinator *OccupancyCoordinator
	Interval    time.Duration
	IdleWindow  time.Duration
	StopChan    chan struct{}
}

func NewSessionSweeper(coordinator *OccupancyCoordinator, idleWindow time.Duration) *SessionSweeper {
	return &SessionSweeper{
		Coordinator: coordinator,
		Interval:    time.Minute,
		IdleWindow:  idleWindow,
		StopChan:    make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.StopChan:
				return
			}
		}
	}()
}

func (s *SessionSweeper) Stop() {
	close(s.StopChan)
}

func (s *SessionSweeper) sweep() {
	cutoff := time.Now().Add(-s.IdleWindow)
	expired, err := s.Coordinator.ExpireIdle(cutoff)
	if err != nil {
		utils.ErrorLogger.Printf("Error sweeping idle sessions: %v", err)
		return
	}
	if expired > 0 {
		utils.InfoLogger.Printf("Expired %d idle guest sessions", expired)
	}
}
