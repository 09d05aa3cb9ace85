package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	"github.com/Rethick-Jeganathan/Procura/internal/repository"
)

type mockIdentityProvider struct {
	mu sync.Mutex

	signInCalls  int
	signUpCalls  int
	signOutCalls int
	recoverCalls int
	confirmCalls int

	signInFunc          func(ctx context.Context, email, password string) (*domain.Session, error)
	signUpFunc          func(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error)
	signOutErr          error
	recoverErr          error
	confirmFunc         func(ctx context.Context, token, newPassword string) error
	currentIdentityFunc func(ctx context.Context, accessToken string) (*domain.Identity, error)
	refreshFunc         func(ctx context.Context, refreshToken string) (*domain.Session, error)
}

func (m *mockIdentityProvider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	m.mu.Lock()
	m.signInCalls++
	m.mu.Unlock()
	return m.signInFunc(ctx, email, password)
}

func (m *mockIdentityProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
	m.mu.Lock()
	m.signUpCalls++
	m.mu.Unlock()
	return m.signUpFunc(ctx, email, password, metadata)
}

func (m *mockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return nil, provider.ErrInvalidCredentials
}

func (m *mockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	m.signOutCalls++
	m.mu.Unlock()
	return m.signOutErr
}

func (m *mockIdentityProvider) RequestPasswordReset(ctx context.Context, email string) error {
	m.mu.Lock()
	m.recoverCalls++
	m.mu.Unlock()
	return m.recoverErr
}

func (m *mockIdentityProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	m.mu.Lock()
	m.confirmCalls++
	m.mu.Unlock()
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *mockIdentityProvider) CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if m.currentIdentityFunc != nil {
		return m.currentIdentityFunc(ctx, accessToken)
	}
	return nil, repository.ErrNotFound
}

func (m *mockIdentityProvider) calls() (signIn, signUp, confirm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signInCalls, m.signUpCalls, m.confirmCalls
}

type mockProfileRepository struct {
	mu sync.Mutex

	profiles map[string]domain.Profile

	upsertCalls   int
	backfillCalls int
	backfillRows  int64
	backfillErr   error
	countErr      error
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{profiles: make(map[string]domain.Profile)}
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if existing, ok := m.profiles[profile.ID]; ok {
		profile.Role = existing.Role
		profile.CreatedAt = existing.CreatedAt
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile, ok := m.profiles[id]; ok {
		copied := profile
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockProfileRepository) UpdateDisplayName(ctx context.Context, id, displayName string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	profile.DisplayName = displayName
	profile.UpdatedAt = updatedAt
	m.profiles[id] = profile
	return nil
}

func (m *mockProfileRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	profile.LastActiveAt = at
	m.profiles[id] = profile
	return nil
}

func (m *mockProfileRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.profiles)), nil
}

func (m *mockProfileRepository) Backfill(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillCalls++
	return m.backfillRows, m.backfillErr
}

func (m *mockProfileRepository) get(id string) (domain.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	return profile, ok
}

type mockIdentityRepository struct {
	identities []domain.Identity
	countErr   error
}

func (m *mockIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	for _, identity := range m.identities {
		if identity.ID == id {
			copied := identity
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockIdentityRepository) Count(ctx context.Context) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.identities)), nil
}

func (m *mockIdentityRepository) ListMissingProfiles(ctx context.Context, limit int) ([]domain.Identity, error) {
	return nil, nil
}

type mockEventPublisher struct {
	mu        sync.Mutex
	synced    []domain.ProfileSyncedEvent
	backfills []domain.BackfillCompletedEvent
	err       error
}

func (m *mockEventPublisher) PublishProfileSynced(ctx context.Context, event domain.ProfileSyncedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.synced = append(m.synced, event)
	return nil
}

func (m *mockEventPublisher) PublishBackfillCompleted(ctx context.Context, event domain.BackfillCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.backfills = append(m.backfills, event)
	return nil
}

type mockSyncMetrics struct {
	mu         sync.Mutex
	identities int64
	profiles   int64
	repaired   int64
}

func (m *mockSyncMetrics) SetDivergence(identities, profiles int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = identities
	m.profiles = profiles
}

func (m *mockSyncMetrics) divergenceCounts() (int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identities, m.profiles
}

func (m *mockSyncMetrics) AddBackfillRepaired(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repaired += count
}

type mockResetTokenStore struct {
	mu       sync.Mutex
	consumed map[string]bool
	err      error
}

func newMockResetTokenStore() *mockResetTokenStore {
	return &mockResetTokenStore{consumed: make(map[string]bool)}
}

func (m *mockResetTokenStore) Consume(ctx context.Context, tokenHash string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.consumed[tokenHash] {
		return false, nil
	}
	m.consumed[tokenHash] = true
	return true, nil
}

func (m *mockResetTokenStore) Release(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.consumed, tokenHash)
	return nil
}
