// Package pending holds in-progress two-factor setups between the setup and
// enable steps. Entries live only in process memory: a restart discards
// in-flight setups and the user restarts the flow. That is an accepted
// limitation: nothing is persisted until the setup is confirmed.
package pending

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobdeck/api/internal/pkg/clock"
)

const (
	// SetupTTL is how long an unconfirmed setup stays redeemable.
	SetupTTL = 10 * time.Minute
	// SweepInterval bounds memory growth from abandoned setups.
	SweepInterval = 60 * time.Second
)

// Setup is an unconfirmed two-factor enrollment. The raw secret and plaintext
// backup codes exist only here until the user confirms with a live code.
type Setup struct {
	UserID      uuid.UUID
	Secret      string
	BackupCodes []string
	ExpiresAt   time.Time
}

// Store is an explicitly constructed, injectable TTL map keyed by user.
// One entry per user; a new setup overwrites an old one (last write wins).
// Expiry is enforced lazily on read and proactively by a periodic sweep.
type Store struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Setup

	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger

	sweepEvery time.Duration
	stop       chan struct{}
	done       chan struct{}
}

// NewStore creates a pending-setup store with the standard TTL and sweep
// interval. The clock is injected so tests can drive expiry.
func NewStore(clk clock.Clock, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:    make(map[uuid.UUID]Setup),
		clock:      clk,
		ttl:        SetupTTL,
		logger:     logger,
		sweepEvery: SweepInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Put stores a pending setup for userID, replacing any existing entry.
func (s *Store) Put(userID uuid.UUID, secret string, backupCodes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = Setup{
		UserID:      userID,
		Secret:      secret,
		BackupCodes: backupCodes,
		ExpiresAt:   s.clock.Now().Add(s.ttl),
	}
}

// Get returns the pending setup for userID. A missing or expired entry
// reports ok=false; an expired entry is removed on the way out.
func (s *Store) Get(userID uuid.UUID) (Setup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return Setup{}, false
	}
	if s.clock.Now().After(entry.ExpiresAt) {
		delete(s.entries, userID)
		return Setup{}, false
	}
	return entry, true
}

// Remove clears the pending entry for userID, on successful enable or abandon.
func (s *Store) Remove(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Len reports the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start launches the background sweep. It runs detached from any request
// lifecycle and holds no request-scoped resources.
func (s *Store) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
	s.logger.Info("Pending setup sweeper started",
		zap.Duration("interval", s.sweepEvery),
		zap.Duration("ttl", s.ttl))
}

// Stop terminates the background sweep and waits for it to exit.
func (s *Store) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Pending setup sweeper stopped")
}

func (s *Store) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	removed := 0
	for userID, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, userID)
			removed++
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("Swept expired pending setups",
			zap.Int("removed", removed),
			zap.Int("remaining", remaining))
	}
}
