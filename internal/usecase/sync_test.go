package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

func newSyncFixture(t *testing.T) (*SyncService, *mockIdentityRepository, *mockProfileRepository, *mockEventPublisher, *mockSyncMetrics) {
	t.Helper()
	identities := &mockIdentityRepository{}
	profiles := newMockProfileRepository()
	publisher := &mockEventPublisher{}
	metrics := &mockSyncMetrics{}
	svc := NewSyncService(identities, profiles, publisher, zaptest.NewLogger(t)).
		WithMetrics(metrics).
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc, identities, profiles, publisher, metrics
}

func TestHandleIdentityCreatedDerivesDisplayNameFromMetadata(t *testing.T) {
	svc, _, profiles, publisher, _ := newSyncFixture(t)

	err := svc.HandleIdentityCreated(context.Background(), domain.IdentityCreatedEvent{
		EventID: "evt-1",
		UserID:  "user-1",
		Email:   "ada.lovelace@example.com",
		Metadata: map[string]any{
			"full_name": "Ada Lovelace",
		},
	})
	if err != nil {
		t.Fatalf("HandleIdentityCreated: %v", err)
	}

	profile, ok := profiles.get("user-1")
	if !ok {
		t.Fatal("expected profile row to exist")
	}
	if profile.DisplayName != "Ada Lovelace" {
		t.Errorf("display name = %q, want %q", profile.DisplayName, "Ada Lovelace")
	}
	if profile.Role != domain.RoleViewer {
		t.Errorf("role = %q, want viewer", profile.Role)
	}
	if len(publisher.synced) != 1 {
		t.Fatalf("synced events = %d, want 1", len(publisher.synced))
	}
	if publisher.synced[0].UserID != "user-1" {
		t.Errorf("event user id = %q", publisher.synced[0].UserID)
	}
}

func TestHandleIdentityCreatedFallsBackToEmailLocalPart(t *testing.T) {
	svc, _, profiles, _, _ := newSyncFixture(t)

	err := svc.HandleIdentityCreated(context.Background(), domain.IdentityCreatedEvent{
		UserID: "user-2",
		Email:  "grace.hopper@example.com",
	})
	if err != nil {
		t.Fatalf("HandleIdentityCreated: %v", err)
	}

	profile, _ := profiles.get("user-2")
	if profile.DisplayName != "grace.hopper" {
		t.Errorf("display name = %q, want %q", profile.DisplayName, "grace.hopper")
	}
}

func TestHandleIdentityCreatedIsIdempotentAndPreservesRole(t *testing.T) {
	svc, _, profiles, _, _ := newSyncFixture(t)

	event := domain.IdentityCreatedEvent{
		UserID: "user-3",
		Email:  "editor@example.com",
	}
	if err := svc.HandleIdentityCreated(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Simulate a later role promotion, then redeliver the same event.
	profiles.mu.Lock()
	promoted := profiles.profiles["user-3"]
	promoted.Role = domain.RoleEditor
	profiles.profiles["user-3"] = promoted
	profiles.mu.Unlock()

	if err := svc.HandleIdentityCreated(context.Background(), event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	profile, _ := profiles.get("user-3")
	if profile.Role != domain.RoleEditor {
		t.Errorf("role after redelivery = %q, want editor preserved", profile.Role)
	}
	if profiles.upsertCalls != 2 {
		t.Errorf("upsert calls = %d, want 2", profiles.upsertCalls)
	}
}

func TestHandleIdentityCreatedRejectsMissingUserID(t *testing.T) {
	svc, _, profiles, _, _ := newSyncFixture(t)

	if err := svc.HandleIdentityCreated(context.Background(), domain.IdentityCreatedEvent{Email: "x@example.com"}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if profiles.upsertCalls != 0 {
		t.Errorf("upsert calls = %d, want 0", profiles.upsertCalls)
	}
}

func TestBackfillReportsRepairedRows(t *testing.T) {
	svc, _, profiles, publisher, metrics := newSyncFixture(t)
	profiles.backfillRows = 4

	repaired, err := svc.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if repaired != 4 {
		t.Errorf("repaired = %d, want 4", repaired)
	}
	if metrics.repaired != 4 {
		t.Errorf("metrics repaired = %d, want 4", metrics.repaired)
	}
	if len(publisher.backfills) != 1 || publisher.backfills[0].Repaired != 4 {
		t.Errorf("backfill events = %+v", publisher.backfills)
	}
}

func TestBackfillSecondRunRepairsNothing(t *testing.T) {
	svc, _, profiles, _, metrics := newSyncFixture(t)
	profiles.backfillRows = 2

	if _, err := svc.Backfill(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	profiles.mu.Lock()
	profiles.backfillRows = 0
	profiles.mu.Unlock()

	repaired, err := svc.Backfill(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if repaired != 0 {
		t.Errorf("second run repaired = %d, want 0", repaired)
	}
	if metrics.repaired != 2 {
		t.Errorf("metrics repaired = %d, want 2", metrics.repaired)
	}
}

func TestBackfillPropagatesRepositoryError(t *testing.T) {
	svc, _, profiles, publisher, _ := newSyncFixture(t)
	profiles.backfillErr = errors.New("connection reset")

	if _, err := svc.Backfill(context.Background()); err == nil {
		t.Fatal("expected backfill error")
	}
	if len(publisher.backfills) != 0 {
		t.Errorf("no completion event expected on failure, got %d", len(publisher.backfills))
	}
}

func TestDivergenceConverged(t *testing.T) {
	svc, identities, profiles, _, metrics := newSyncFixture(t)
	identities.identities = []domain.Identity{{ID: "a"}, {ID: "b"}}
	profiles.profiles["a"] = domain.Profile{ID: "a"}
	profiles.profiles["b"] = domain.Profile{ID: "b"}

	report, err := svc.Divergence(context.Background())
	if err != nil {
		t.Fatalf("Divergence: %v", err)
	}
	if report.Diverged() {
		t.Errorf("report diverged, want converged: %+v", report)
	}
	if metrics.identities != 2 || metrics.profiles != 2 {
		t.Errorf("metrics = %d/%d, want 2/2", metrics.identities, metrics.profiles)
	}
}

func TestDivergenceDetected(t *testing.T) {
	svc, identities, profiles, _, metrics := newSyncFixture(t)
	identities.identities = []domain.Identity{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	profiles.profiles["a"] = domain.Profile{ID: "a"}

	report, err := svc.Divergence(context.Background())
	if !errors.Is(err, ErrSyncDivergence) {
		t.Fatalf("err = %v, want ErrSyncDivergence", err)
	}
	if report.Identities != 3 || report.Profiles != 1 {
		t.Errorf("report = %+v", report)
	}
	if metrics.identities != 3 || metrics.profiles != 1 {
		t.Errorf("metrics = %d/%d, want 3/1", metrics.identities, metrics.profiles)
	}
}

func TestWatchRefreshesMetricsUnattended(t *testing.T) {
	svc, identities, profiles, _, metrics := newSyncFixture(t)
	identities.identities = []domain.Identity{{ID: "a"}, {ID: "b"}}
	profiles.profiles["a"] = domain.Profile{ID: "a"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Watch(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		ids, profs := metrics.divergenceCounts()
		if ids == 2 && profs == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("gauges never refreshed: %d/%d", ids, profs)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestWatchDisabledWithoutInterval(t *testing.T) {
	svc, _, _, _, _ := newSyncFixture(t)

	done := make(chan struct{})
	go func() {
		svc.Watch(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should return immediately")
	}
}
