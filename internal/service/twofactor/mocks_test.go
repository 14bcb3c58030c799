package twofactor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/api/internal/domain"
	"github.com/jobdeck/api/internal/pending"
	"github.com/jobdeck/api/internal/repository"
)

// fakeClock returns a fixed instant until advanced
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRepo is an in-memory Repository with injectable failures
type fakeRepo struct {
	mu     sync.Mutex
	states map[uuid.UUID]*domain.TwoFactorState

	loadErr    error
	saveErr    error
	consumeErr error
	disableErr error

	saveCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{states: map[uuid.UUID]*domain.TwoFactorState{}}
}

func (r *fakeRepo) Load(_ context.Context, userID uuid.UUID) (*domain.TwoFactorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	state, ok := r.states[userID]
	if !ok {
		return &domain.TwoFactorState{UserID: userID}, nil
	}
	cp := *state
	cp.BackupCodeHashes = append([]string(nil), state.BackupCodeHashes...)
	return &cp, nil
}

func (r *fakeRepo) Save(_ context.Context, state *domain.TwoFactorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCalls++
	cp := *state
	cp.BackupCodeHashes = append([]string(nil), state.BackupCodeHashes...)
	r.states[state.UserID] = &cp
	return nil
}

func (r *fakeRepo) ConsumeBackupCode(_ context.Context, userID uuid.UUID, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumeErr != nil {
		return false, r.consumeErr
	}
	state, ok := r.states[userID]
	if !ok {
		return false, nil
	}
	for i, h := range state.BackupCodeHashes {
		if h == codeHash {
			state.BackupCodeHashes = append(state.BackupCodeHashes[:i], state.BackupCodeHashes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) Disable(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disableErr != nil {
		return r.disableErr
	}
	state, ok := r.states[userID]
	if !ok {
		return nil
	}
	state.Enabled = false
	state.EncryptedSecret = ""
	state.BackupCodeHashes = nil
	return nil
}

// fakeAudit records audit events in order
type fakeAudit struct {
	mu     sync.Mutex
	events []repository.AuditEvent
}

func (a *fakeAudit) LogEvent(_ context.Context, event repository.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) eventTypes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	types := make([]string, len(a.events))
	for i, e := range a.events {
		types[i] = e.EventType
	}
	return types
}

// fakeReplay remembers every (userID, code) pair it has seen
type fakeReplay struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeReplay() *fakeReplay {
	return &fakeReplay{seen: map[string]bool{}}
}

func (g *fakeReplay) MarkCodeUsed(_ context.Context, userID, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	key := userID + ":" + code
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

// failingEncryptor forces cipher errors
type failingEncryptor struct {
	encryptErr error
	decryptErr error
}

func (e *failingEncryptor) Encrypt(string) (string, error) { return "", e.encryptErr }
func (e *failingEncryptor) Decrypt(string) (string, error) { return "", e.decryptErr }

var _ Repository = (*fakeRepo)(nil)
var _ AuditRepository = (*fakeAudit)(nil)
var _ ReplayGuard = (*fakeReplay)(nil)
var _ PendingStore = (*pending.Store)(nil)
