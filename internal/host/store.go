package host

import (
	"context"
	"sync"
	"time"
	"waterbill/internal/poller"
	"waterbill/internal/scrapers/waterfee"
)

// State is what the host knows about the account after the latest tick.
type State struct {
	Reading    poller.AggregatedReading
	HasReading bool
	Stale      bool
	// ErrorCode is one of the waterfee.Code* values when the latest tick
	// failed.
	ErrorCode string
	Error     string
	// LastAttempt is the time of the latest tick, LastSuccess the time of the
	// latest tick that produced Reading.
	LastAttempt time.Time
	LastSuccess time.Time
}

// Store is a poller.Publisher that keeps the latest state in memory.
type Store struct {
	mutex sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Publish(ctx context.Context, update poller.Update) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state.Reading = update.Reading
	s.state.HasReading = update.HasReading
	s.state.Stale = update.Stale()
	s.state.LastAttempt = update.At
	if update.Err != nil {
		s.state.ErrorCode = waterfee.ErrorCode(update.Err)
		s.state.Error = update.Err.Error()
		return
	}
	s.state.ErrorCode = ""
	s.state.Error = ""
	s.state.LastSuccess = update.At
}

func (s *Store) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// Publishers fans an update out to every publisher in order.
type Publishers []poller.Publisher

func (p Publishers) Publish(ctx context.Context, update poller.Update) {
	for _, publisher := range p {
		publisher.Publish(ctx, update)
	}
}
